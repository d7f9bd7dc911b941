package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

type labelsCmd struct{}

func (*labelsCmd) Name() string {
	return "labels"
}

func (*labelsCmd) Synopsis() string {
	return "list mailbox labels"
}

func (*labelsCmd) Usage() string {
	return `labels:
	print all labels as JSON (the default command)
`
}

func (*labelsCmd) SetFlags(f *flag.FlagSet) {}

func (*labelsCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	labels, err := c.Labels(ctx)
	if err != nil {
		return fatal("Labels call failed", err)
	}
	if err := printJSON(labels); err != nil {
		return fatal("Couldn't write labels", err)
	}
	return subcommands.ExitSuccess
}

type addLabelsCmd struct{}

func (*addLabelsCmd) Name() string {
	return "addlabels"
}

func (*addLabelsCmd) Synopsis() string {
	return "add labels to a message"
}

func (*addLabelsCmd) Usage() string {
	return `addlabels <message id> <label id>...:
	add one or more label ids to a message
`
}

func (*addLabelsCmd) SetFlags(f *flag.FlagSet) {}

func (*addLabelsCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return usage("message id and at least one label id required")
	}
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	id, labelIDs := f.Arg(0), f.Args()[1:]
	if err := c.AddLabels(ctx, id, labelIDs...); err != nil {
		return fatal("Modify call failed", err)
	}
	log.Info().Str("id", id).Strs("labels", labelIDs).Msg("Labels added")
	return subcommands.ExitSuccess
}
