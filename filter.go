package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/bassamadnan/gmailparse/config"
	"github.com/google/subcommands"
)

type filterCmd struct{}

func (*filterCmd) Name() string {
	return "filter"
}

func (*filterCmd) Synopsis() string {
	return "manage the watch mode ignore list"
}

func (*filterCmd) Usage() string {
	return `filter list
filter add|remove sender|subject|body <value>:
	edit the rules that hide messages in browse -watch
`
}

func (*filterCmd) SetFlags(f *flag.FlagSet) {}

func (*filterCmd) Execute(
	_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	m, err := config.NewManager(conf.FilterFile)
	if err != nil {
		return fatal("Couldn't load filters", err)
	}
	switch f.Arg(0) {
	case "", "list":
		printRules("sender", m.GetFilters().IgnoreSenders)
		printRules("subject", m.GetFilters().IgnoreKeywordsInSubject)
		printRules("body", m.GetFilters().IgnoreKeywordsInBody)
		return subcommands.ExitSuccess
	case "add", "remove":
	default:
		return usage("unknown filter action: " + f.Arg(0))
	}
	if f.NArg() < 3 {
		return usage("filter " + f.Arg(0) + " needs a kind and a value")
	}
	value := strings.Join(f.Args()[2:], " ")
	edit, ok := filterEdits(m, f.Arg(0))[f.Arg(1)]
	if !ok {
		return usage("filter kind must be sender, subject, or body")
	}
	if err := edit(value); err != nil {
		return fatal("Couldn't save filters", err)
	}
	return subcommands.ExitSuccess
}

func filterEdits(m *config.Manager, action string) map[string]func(string) error {
	if action == "remove" {
		return map[string]func(string) error{
			"sender":  m.RemoveIgnoreSender,
			"subject": m.RemoveIgnoreKeywordInSubject,
			"body":    m.RemoveIgnoreKeywordInBody,
		}
	}
	return map[string]func(string) error{
		"sender":  m.AddIgnoreSender,
		"subject": m.AddIgnoreKeywordInSubject,
		"body":    m.AddIgnoreKeywordInBody,
	}
}

func printRules(kind string, values []string) {
	for _, v := range values {
		fmt.Printf("%s\t%s\n", kind, v)
	}
}
