package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/bassamadnan/gmailparse/config"
	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/bassamadnan/gmailparse/tui"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type mailSearcher interface {
	SearchMails(ctx context.Context, query string) ([]*gmail.Message, error)
}

const (
	tuiLogFile       = "gmailparse.log"
	initialPollDelay = 1 * time.Second // Lets the TUI draw before the first fetch
)

type browseCmd struct {
	watch bool
}

func (*browseCmd) Name() string {
	return "browse"
}

func (*browseCmd) Synopsis() string {
	return "browse messages in a terminal UI"
}

func (*browseCmd) Usage() string {
	return `browse [flags] [query]:
	show the messages matching query, or follow the inbox with -watch
`
}

func (b *browseCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&b.watch, "watch", false, "poll for new messages instead of a one-off search")
}

func (b *browseCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// The TUI owns the terminal, so stderr logging moves to a file.
	if *logfile == "stderr" || *logfile == "stdout" {
		if err := openLog(conf.LogLevel, tuiLogFile, *logjson); err != nil {
			return fatal("Couldn't open log file", err)
		}
	}
	filters, err := config.NewManager(conf.FilterFile)
	if err != nil {
		return fatal("Couldn't load filters", err)
	}
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	feed := make(chan *gmail.Message, 16)
	errs := make(chan error, 1)
	query := strings.Join(f.Args(), " ")

	var source string
	if b.watch {
		if query == "" {
			query = conf.WatchQuery
		}
		mon := gmail.NewMonitor(c, filters, query, conf.PollInterval)
		mon.SetInitialDelay(initialPollDelay)
		go mon.Run(ctx, feed)
		source = fmt.Sprintf("Watching %q (every %v)", query, conf.PollInterval)
	} else {
		go searchInto(ctx, c, query, feed, errs)
		source = fmt.Sprintf("Search %q", query)
	}
	log.Info().Str("module", "main").Str("query", query).Bool("watch", b.watch).Msg("Starting browser")

	if err := tui.Run(tui.NewModel(feed, filters, source).WithErrors(errs)); err != nil {
		return fatal("Error running TUI", err)
	}
	return subcommands.ExitSuccess
}

// searchInto runs one search and delivers its messages on feed, closing it
// when done. A failed search is reported once on errs, which must have room
// for it.
func searchInto(ctx context.Context, c mailSearcher, query string, feed chan<- *gmail.Message, errs chan<- error) {
	defer close(feed)
	msgs, err := c.SearchMails(ctx, query)
	if err != nil {
		log.Error().Str("module", "main").Str("query", query).Err(err).Msg("Search failed")
		errs <- err
		return
	}
	for _, m := range msgs {
		select {
		case feed <- m:
		case <-ctx.Done():
			return
		}
	}
}
