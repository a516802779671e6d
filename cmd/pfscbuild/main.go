package main

import "github.com/proofscape/pfscbuild/internal/cli"

func main() {
	cli.Execute()
}
