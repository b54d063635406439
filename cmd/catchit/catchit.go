package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/application-research/catchit"
	"github.com/application-research/catchit/future"
	"github.com/application-research/catchit/result"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
)

var errCommandFailed = errors.New("command failed")

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "catchit"
	app.Usage = "Run a command and print how it finished as [ok, error, value]"
	app.Writer = out
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "Log level for the catchit and future loggers",
		},
	}
	app.Before = func(cctx *cli.Context) error {
		for _, name := range []string{"catchit", "future"} {
			if err := logging.SetLogLevel(name, cctx.String("log-level")); err != nil {
				return fmt.Errorf("could not set log level: %w", err)
			}
		}
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "run",
			Usage:     "Run a command, capturing its stdout as the value",
			ArgsUsage: "-- <command> [args...]",
			Action:    cmdRun,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "async",
					Aliases: []string{"a"},
					Usage:   "Run the command on its own goroutine and await the future",
				},
				&cli.StringFlag{
					Name:    "dir",
					Aliases: []string{"d"},
					Usage:   "Working directory for the command, ~ is expanded",
				},
			},
		},
	}
	return app
}

func cmdRun(cctx *cli.Context) error {
	args := cctx.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("no command given")
	}

	dir, err := homedir.Expand(cctx.String("dir"))
	if err != nil {
		return fmt.Errorf("could not expand working directory: %w", err)
	}

	run := func() (string, error) {
		cmd := exec.CommandContext(cctx.Context, args[0], args[1:]...)
		cmd.Dir = dir
		out, err := cmd.Output()
		return string(out), err
	}

	var res result.Result[string]
	if cctx.Bool("async") {
		res, err = catchit.Async(func() *future.Future[string] {
			return future.Go(run)
		}).Await(cctx.Context)
		if err != nil {
			return err
		}
	} else {
		res = catchit.Call(run)
	}

	if !res.IsOK() {
		var exitErr *exec.ExitError
		if err, ok := res.Failure().(error); ok && errors.As(err, &exitErr) {
			log.Warnw("command exited with an error", "command", args[0], "code", exitErr.ExitCode(), "stderr", string(exitErr.Stderr))
		}
	}
	log.Debugf("%s: %s", args[0], res)

	encoded, err := json.Marshal(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, string(encoded))

	if !res.IsOK() {
		return errCommandFailed
	}
	return nil
}
