package main

import (
	"context"
	"flag"

	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type deleteCmd struct {
	batch bool
}

func (*deleteCmd) Name() string {
	return "delete"
}

func (*deleteCmd) Synopsis() string {
	return "permanently delete messages"
}

func (*deleteCmd) Usage() string {
	return `delete [flags] <message id>...:
	permanently delete messages, skipping the trash
`
}

func (d *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&d.batch, "batch", false, "delete all messages in a single request")
}

func (d *deleteCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ids := f.Args()
	if len(ids) == 0 {
		return usage("at least one message id required")
	}
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	if d.batch {
		err = c.DeleteMailsBatch(ctx, ids...)
	} else {
		err = c.DeleteMails(ctx, ids...)
	}
	if err != nil {
		if gmail.IsNotFound(err) {
			return fatal("No such message", err)
		}
		return fatal("Delete call failed", err)
	}
	log.Info().Int("count", len(ids)).Bool("batch", d.batch).Msg("Messages deleted")
	return subcommands.ExitSuccess
}
