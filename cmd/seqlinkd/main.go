package main

import "github.com/seqlink/seqlinkd/internal/cli"

func main() {
	cli.Execute()
}
