// The deploy-cocacolacodes binary deploys CocaColaCodes("CocaColaCodes", "CCC")
// and prints its address. Invoke with --help for flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/solidifylabs/deployops/deploycli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := deploycli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
