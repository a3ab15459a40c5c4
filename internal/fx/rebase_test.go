package fx

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestApplyRebaseDividesPreRebaseRows(t *testing.T) {
	rows := []Row{
		{
			Date: day("2012-06-15"),
			USD:  Pair{Buy: dec("5000"), Sale: dec("5010")},
			GBP:  Pair{Buy: dec("7500.8"), Sale: dec("7520.95")},
		},
		{
			Date: day("2014-06-15"),
			USD:  Pair{Buy: dec("5.2"), Sale: dec("5.25")},
		},
	}

	rebased := applyRebase(rows, zerolog.Nop())

	pre := rebased[0]
	if !pre.Normalized {
		t.Fatal("pre-rebase row must be flagged normalized")
	}
	if pre.USD.Buy.String() != "5" || pre.USD.Sale.String() != "5.01" {
		t.Fatalf("USD pair not divided by 1000: %s/%s", pre.USD.Buy, pre.USD.Sale)
	}
	if pre.GBP.Buy.String() != "7.5008" {
		t.Fatalf("GBP buy not divided by 1000: %s", pre.GBP.Buy)
	}

	post := rebased[1]
	if post.Normalized {
		t.Fatal("post-rebase row must not be flagged")
	}
	if post.USD.Buy.String() != "5.2" {
		t.Fatalf("post-rebase values must be unchanged: %s", post.USD.Buy)
	}
}

func TestApplyRebaseBoundaryDay(t *testing.T) {
	rows := []Row{
		{Date: day("2012-12-31"), USD: Pair{Buy: dec("5000"), Sale: dec("5010")}},
		{Date: day("2013-01-01"), USD: Pair{Buy: dec("5.2"), Sale: dec("5.25")}},
	}

	rebased := applyRebase(rows, zerolog.Nop())
	if !rebased[0].Normalized {
		t.Fatal("2012-12-31 is strictly before the rebase date")
	}
	if rebased[1].Normalized {
		t.Fatal("the rebase date itself is already in the new unit")
	}
}

func TestApplyRebaseSkipsMissingSides(t *testing.T) {
	rows := []Row{{
		Date: day("2012-06-15"),
		USD:  Pair{Buy: dec("5000"), Sale: dec("5010")},
		EUR:  Pair{Sale: dec("6515.75")},
	}}

	rebased := applyRebase(rows, zerolog.Nop())
	if rebased[0].EUR.Buy != nil {
		t.Fatal("missing side must stay missing")
	}
	if rebased[0].EUR.Sale.String() != "6.51575" {
		t.Fatalf("present side must still be divided: %s", rebased[0].EUR.Sale)
	}
}
