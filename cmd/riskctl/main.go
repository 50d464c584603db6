package main

import (
	"context"
	"fmt"
	"os"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "riskctl: %v\n", err)
		os.Exit(1)
	}
}
