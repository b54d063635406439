package main

import (
	"context"
	"os"
	"os/signal"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("catchit")

func main() {
	logging.SetLogLevel("catchit", "info")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app := newApp(os.Stdout)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}
