// Package main implements a command line client for the Gmail REST API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/bassamadnan/gmailparse/config"
	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	help    = flag.Bool("help", false, "Displays help on flags and env variables.")
	logfile = flag.String("logfile", "stderr", "Write out log into the specified file.")
	logjson = flag.Bool("logjson", false, "Logs are written in JSON format.")

	// conf is loaded once in main before any command runs.
	conf *config.Root
	// closeLog flushes the current log destination.
	closeLog = func() {}
)

func main() {
	subcommands.ImportantFlag("logfile")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&labelsCmd{}, "mail")
	subcommands.Register(&searchCmd{}, "mail")
	subcommands.Register(&searchExCmd{}, "mail")
	subcommands.Register(&getCmd{}, "mail")
	subcommands.Register(&rawCmd{}, "mail")
	subcommands.Register(&attachmentCmd{}, "mail")
	subcommands.Register(&addLabelsCmd{}, "mail")
	subcommands.Register(&deleteCmd{}, "mail")
	subcommands.Register(&filterCmd{}, "local")
	subcommands.Register(&browseCmd{}, "local")

	flag.Parse()
	if *help {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "")
		config.Usage()
		return
	}

	var err error
	conf, err = config.Process()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := openLog(conf.LogLevel, *logfile, *logjson); err != nil {
		fmt.Fprintf(os.Stderr, "Log error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	var status subcommands.ExitStatus
	if flag.NArg() == 0 {
		// With no command, list labels.
		status = (&labelsCmd{}).Execute(ctx, flag.NewFlagSet("labels", flag.ExitOnError))
	} else {
		status = subcommands.Execute(ctx)
	}
	stop()
	closeLog()
	os.Exit(int(status))
}

// openLog configures zerolog output, replacing any previous destination.
func openLog(level string, logfile string, json bool) error {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		return fmt.Errorf("Log level %q not one of: debug, info, warn, error", level)
	}
	closeLog()
	closeLog = func() {}
	var w io.Writer
	color := runtime.GOOS != "windows"
	switch logfile {
	case "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		logf, err := os.OpenFile(logfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(logf)
		w = bw
		color = false
		closeLog = func() {
			_ = bw.Flush()
			_ = logf.Close()
		}
	}
	w = zerolog.SyncWriter(w)
	if json {
		log.Logger = log.Output(w)
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !color,
	})
	return nil
}

func newClient(ctx context.Context) (*gmail.Client, error) {
	return gmail.NewClient(ctx, conf)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
