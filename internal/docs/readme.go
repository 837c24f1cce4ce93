// Package docs renders the command reference into README.md.
package docs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/keshon/commandclient/internal/command"
	"github.com/keshon/commandclient/internal/config"
	"github.com/keshon/commandclient/pkg/cmd"
)

// Render lists commands as markdown sections, one per category, ordered by
// category weight and then by name.
func Render(commands []cmd.Command, prefix string) string {
	sorted := append([]cmd.Command(nil), commands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi := config.CategoryWeight(command.CategoryOf(sorted[i]))
		wj := config.CategoryWeight(command.CategoryOf(sorted[j]))
		if wi == wj {
			return sorted[i].Name() < sorted[j].Name()
		}
		return wi < wj
	})

	var buf bytes.Buffer
	currentCategory := ""
	for _, c := range sorted {
		if cat := command.CategoryOf(c); cat != currentCategory {
			if currentCategory != "" {
				buf.WriteString("\n")
			}
			currentCategory = cat
			fmt.Fprintf(&buf, "### %s\n\n", currentCategory)
		}

		fmt.Fprintf(&buf, "- **`%s%s`** - %s", prefix, c.Name(), c.Description())
		if aliases := c.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(&buf, " (aliases: %s)", strings.Join(aliases, ", "))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// UpdateReadme executes the template at tmplPath with the rendered command
// sections as .CommandSections and writes the result to outPath.
func UpdateReadme(tmplPath, outPath string, commands []cmd.Command, prefix string) error {
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	data := struct {
		CommandSections string
	}{
		CommandSections: Render(commands, prefix),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return os.WriteFile(outPath, out.Bytes(), 0o644)
}
