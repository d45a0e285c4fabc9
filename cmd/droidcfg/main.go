// cmd/droidcfg/main.go
//
// This is the entry point for the droidcfg CLI.
// Point it at an Android workspace (the directory holding the project
// folders) and it resolves every project's configuration:
//
// 1. Load droidcfg.yaml and discover project descriptors
// 2. Order projects behind the primary project
// 3. Redirect build output, inherit repositories, apply Android plugins
//    (namespace backfill, SDK pinning)
// 4. Persist the resolved model and print it

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is stamped into the resolved artifact; overridden at link time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
