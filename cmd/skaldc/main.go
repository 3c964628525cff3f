package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/skald-lang/skald/pkg/app"
)

//go:embed stdlib
var stdlib embed.FS

func main() {
	if err := app.New(stdlib).Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
