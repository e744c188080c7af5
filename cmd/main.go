package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/theatro/theatro/cmd/app"
	"github.com/theatro/theatro/internal/adapters/config"
	"github.com/theatro/theatro/internal/cli"
	"github.com/theatro/theatro/pkg/logger"

	_ "time/tzdata"
)

func main() {
	cmd, err := cli.Parse(os.Args[1:], os.LookupEnv)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Fprintln(os.Stderr, cli.ErrUsage)
		os.Exit(2)
	}

	cfg := config.Get(cmd.ConfigPath)
	defer logger.Sync()

	a, err := app.New(cfg)
	if err != nil {
		logger.Log.Panic(err)
	}
	a.EnableLogChannel()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = cli.Run(ctx, cmd, a.Deps(), os.Stdout); err != nil {
		logger.Log.Errorf("%s failed: %v", cmd.Command, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		logger.Sync()
		os.Exit(1)
	}
}
