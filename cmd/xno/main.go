package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/xnoquant/xno/log"
	"github.com/xnoquant/xno/signaler"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signaler.WaitForInterrupt()
		log.Infof(log.Global, "Captured %v, shutting down", sig)
		cancel()
	}()
	err := newApp().RunContext(ctx, os.Args)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "xno"
	app.Usage = "T+3 settlement aware strategy simulator and backtester for Vietnamese equities"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "env",
			Value: ".env",
			Usage: "dotenv file loaded into the environment before reading the config",
		},
	}
	app.Before = loadEnv
	app.Commands = []*cli.Command{
		runCommand,
		serveCommand,
		migrateCommand,
		timeframeCommand,
	}
	return app
}
