package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bassamadnan/gmailparse/gmail"
	"github.com/bassamadnan/gmailparse/payload"
	"github.com/google/subcommands"
)

type getCmd struct {
	short bool
}

func (*getCmd) Name() string {
	return "get"
}

func (*getCmd) Synopsis() string {
	return "print a parsed message"
}

func (*getCmd) Usage() string {
	return `get [flags] <message id>:
	fetch a message, classify its payload and print the result as JSON
`
}

func (g *getCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&g.short, "short", false, "truncate attachment content")
}

func (g *getCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id := f.Arg(0)
	if id == "" {
		return usage("message id required")
	}
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	var opts []gmail.GetOption
	if g.short {
		opts = append(opts, gmail.WithShortBase64())
	}
	m, err := c.GetMailByID(ctx, id, opts...)
	if err != nil {
		return fatal("Get call failed", err)
	}
	if err := printJSON(m); err != nil {
		return fatal("Couldn't write message", err)
	}
	return subcommands.ExitSuccess
}

type rawCmd struct {
	check bool
}

func (*rawCmd) Name() string {
	return "raw"
}

func (*rawCmd) Synopsis() string {
	return "print a message as returned by the API"
}

func (*rawCmd) Usage() string {
	return `raw [flags] <message id>:
	print the unparsed message JSON, optionally checking its part ids
`
}

func (r *rawCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.check, "check", false, "report the part id layout on stderr")
}

func (r *rawCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id := f.Arg(0)
	if id == "" {
		return usage("message id required")
	}
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	raw, err := c.GetRawMailByID(ctx, id)
	if err != nil {
		return fatal("Get call failed", err)
	}
	if err := printJSON(raw); err != nil {
		return fatal("Couldn't write message", err)
	}
	if r.check {
		report := payload.CheckPartIDs(raw.Payload)
		for _, p := range report.PartIDs {
			fmt.Fprintf(os.Stderr, "%q\n", p)
		}
		for _, v := range report.Violations {
			fmt.Fprintln(os.Stderr, "violation:", v)
		}
	}
	return subcommands.ExitSuccess
}

type attachmentCmd struct {
	output string
}

func (*attachmentCmd) Name() string {
	return "attachment"
}

func (*attachmentCmd) Synopsis() string {
	return "download one attachment"
}

func (*attachmentCmd) Usage() string {
	return `attachment [flags] <message id> <attachment id>:
	print the attachment base64, or write the decoded bytes with -o
`
}

func (a *attachmentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.output, "o", "", "write decoded content to this file")
}

func (a *attachmentCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage("message id and attachment id required")
	}
	c, err := newClient(ctx)
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	data, err := c.GetAttachment(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		return fatal("Attachment call failed", err)
	}
	if a.output == "" {
		fmt.Println(data)
		return subcommands.ExitSuccess
	}
	b, err := payload.DecodeBase64(data)
	if err != nil {
		return fatal("Couldn't decode attachment", err)
	}
	if err := os.WriteFile(a.output, b, 0644); err != nil {
		return fatal("Couldn't write attachment", err)
	}
	return subcommands.ExitSuccess
}
