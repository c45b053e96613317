// Package main provides the entry point for the provisiond CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/provisionkit/provision-go/interfaces/cli"
)

func main() {
	app := cli.New()

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
