package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
)

type searchCmd struct{}

func (*searchCmd) Name() string {
	return "search"
}

func (*searchCmd) Synopsis() string {
	return "list ids of messages matching a query"
}

func (*searchCmd) Usage() string {
	return `search <query>:
	print the ids of all messages matching a Gmail search query
`
}

func (*searchCmd) SetFlags(f *flag.FlagSet) {}

func (*searchCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.Join(f.Args(), " ")
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	refs, err := c.SearchMailIDs(ctx, query)
	if err != nil {
		return fatal("Search call failed", err)
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	fmt.Println(strings.Join(ids, ", "))
	return subcommands.ExitSuccess
}

type searchExCmd struct {
	count int
}

func (*searchExCmd) Name() string {
	return "searchex"
}

func (*searchExCmd) Synopsis() string {
	return "show sender, recipient and subject of matching messages"
}

func (*searchExCmd) Usage() string {
	return `searchex [flags] <query>:
	fetch the newest matching messages and print their from, to and subject
`
}

func (s *searchExCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.count, "n", 3, "number of messages to show")
}

func (s *searchExCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if s.count < 1 {
		return usage("-n must be positive")
	}
	query := strings.Join(f.Args(), " ")
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	refs, err := c.SearchMailIDs(ctx, query)
	if err != nil {
		return fatal("Search call failed", err)
	}
	for _, r := range refs[:min(s.count, len(refs))] {
		m, err := c.GetMailByID(ctx, r.ID)
		if err != nil {
			return fatal("Get call failed", err)
		}
		fmt.Printf("from: %s, to: %s, subject: %s\n", m.From, m.To, m.Subject)
	}
	return subcommands.ExitSuccess
}
