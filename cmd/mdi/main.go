package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prodline/mdi/internal/cli"
)

func main() {
	if err := cli.Root().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
