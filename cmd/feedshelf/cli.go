package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"feedshelf/internal/model"
)

const usage = `Usage: feedshelf [flags] [command] [args]

Commands:
  (none)                 Show the newest entries across all sources
  sub <url> [-alias a]   Subscribe to a feed
  unsub <key>            Unsubscribe (key is alias, title, id or url)
  list                   List sources with their fetch status
  feed <key>             Show the newest entries of one source
  refresh [-force] [key...]
                         Refresh stale sources (all when no key is given)
  rename <key> -alias a  Give a source a new alias
  import <file.opml>     Subscribe to every feed in an OPML file
  export [-o file]       Write subscriptions as OPML
  push [key]             Send the newest entries to Telegram

Flags:
`

var errUsage = errors.New("invalid usage")

type invocation struct {
	name   string
	args   []string
	alias  string
	force  bool
	output string

	configPath string
	limit      int
	filters    []model.Filter
}

type filterFlag struct {
	kind    model.FilterKind
	filters *[]model.Filter
}

func (f filterFlag) String() string { return "" }

func (f filterFlag) Set(v string) error {
	*f.filters = append(*f.filters, model.Filter{Kind: f.kind, Value: v})
	return nil
}

// parseArgs splits the command line into global options, a command name and
// its arguments. Flags may appear before or after positional arguments.
func parseArgs(args []string, stderr io.Writer) (*invocation, error) {
	inv := &invocation{}
	var scope string

	global := flag.NewFlagSet("feedshelf", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage)
		global.PrintDefaults()
	}
	global.StringVar(&inv.configPath, "config", "", "path to config file (TOML or YAML)")
	global.IntVar(&inv.limit, "n", 0, "maximum number of entries to show (default from config)")
	global.Var(filterFlag{model.FilterInclude, &inv.filters}, "include", "only show entries containing word (repeatable)")
	global.Var(filterFlag{model.FilterExclude, &inv.filters}, "exclude", "hide entries containing word (repeatable)")
	global.Var(filterFlag{model.FilterIncludeRe, &inv.filters}, "include-re", "only show entries matching regex (repeatable)")
	global.Var(filterFlag{model.FilterExcludeRe, &inv.filters}, "exclude-re", "hide entries matching regex (repeatable)")
	global.StringVar(&scope, "scope", "all", "filter scope: title, content or all")
	global.StringVar(&inv.alias, "alias", "", "alias for sub and rename")
	global.BoolVar(&inv.force, "force", false, "refresh even fresh sources")
	global.StringVar(&inv.output, "o", "", "output path for export")

	positional, err := parseInterspersed(global, args)
	if err != nil {
		return nil, err
	}
	for i := range inv.filters {
		inv.filters[i].Scope = model.FilterScope(scope)
	}

	if len(positional) > 0 {
		inv.name = positional[0]
		inv.args = positional[1:]
	}
	if err := inv.validate(); err != nil {
		global.Usage()
		return nil, err
	}
	return inv, nil
}

func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func (inv *invocation) validate() error {
	want := func(n int) error {
		if len(inv.args) != n {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", errUsage, inv.name, n, len(inv.args))
		}
		return nil
	}

	switch inv.name {
	case "":
		return want(0)
	case "sub", "unsub", "feed", "import":
		return want(1)
	case "list", "export":
		return want(0)
	case "rename":
		if strings.TrimSpace(inv.alias) == "" {
			return fmt.Errorf("%w: rename requires -alias", errUsage)
		}
		return want(1)
	case "refresh":
		return nil
	case "push":
		if len(inv.args) > 1 {
			return fmt.Errorf("%w: push takes at most one key", errUsage)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, inv.name)
	}
}

func (inv *invocation) key() string {
	if len(inv.args) == 0 {
		return ""
	}
	return inv.args[0]
}
