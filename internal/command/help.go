package command

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/keshon/commandclient/pkg/cmd"
)

// Lister is the read side of the pipeline help needs.
type Lister interface {
	Commands() []cmd.Command
	Command(token string) (cmd.Command, bool)
	Prefixes() []string
}

type HelpCommand struct {
	cmd.Base
	lister Lister
}

func NewHelp(lister Lister) *HelpCommand {
	return &HelpCommand{
		Base: cmd.Base{
			Label:   "help",
			Alias:   []string{"commands"},
			Summary: "Get a list of available commands",
			Params:  []cmd.Param{{Name: "command"}},
		},
		lister: lister,
	}
}

func (c *HelpCommand) Category() string { return categoryInformation }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	var out string
	if name := inv.Args.Get("command"); name != "" {
		out = c.describe(name)
	} else {
		out = c.byCategory()
	}
	_, err := inv.Reply(ctx, out)
	return err
}

func (c *HelpCommand) describe(name string) string {
	found, ok := c.lister.Command(name)
	if !ok {
		return fmt.Sprintf("Unknown command `%s`.", name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** - %s\n", found.Name(), found.Description())
	if aliases := found.Aliases(); len(aliases) > 0 {
		fmt.Fprintf(&sb, "Aliases: %s\n", quoteAll(aliases))
	}
	opts := found.Options()
	if opts.DisableDM {
		sb.WriteString("Not available in DMs.\n")
	}
	if rl := opts.Ratelimit; rl != nil {
		fmt.Fprintf(&sb, "Limit: %d per %s per %s\n", rl.Limit, rl.Duration, rl.Scope)
	}
	return sb.String()
}

func (c *HelpCommand) byCategory() string {
	all := c.lister.Commands()

	categoryMap := make(map[string][]cmd.Command)
	var cats []string
	for _, command := range all {
		cat := CategoryOf(command)
		if _, ok := categoryMap[cat]; !ok {
			cats = append(cats, cat)
		}
		categoryMap[cat] = append(categoryMap[cat], command)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		return categoryWeight(categoryMap[cats[i]][0]) < categoryWeight(categoryMap[cats[j]][0])
	})

	var sb strings.Builder
	if prefixes := c.lister.Prefixes(); len(prefixes) > 0 {
		fmt.Fprintf(&sb, "Prefixes: %s\n\n", quoteAll(prefixes))
	}
	for _, cat := range cats {
		fmt.Fprintf(&sb, "**%s**\n", cat)
		cmds := categoryMap[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
		for _, command := range cmds {
			fmt.Fprintf(&sb, "`%s` - %s\n", command.Name(), command.Description())
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func quoteAll(items []string) string {
	quoted := slices.Clone(items)
	for i, s := range quoted {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}
