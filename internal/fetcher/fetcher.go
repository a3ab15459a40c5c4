package fetcher

import "context"

// SheetFetcher retrieves the raw central-bank rate workbook.
type SheetFetcher interface {
	FetchSheet(ctx context.Context) ([]byte, error)
}
