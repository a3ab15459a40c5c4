package main

import "zedfx/internal/cli"

func main() {
	cli.Execute()
}
