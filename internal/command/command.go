// Package command holds the built-in text commands. Stateless ones add
// themselves to cmd.DefaultCatalog from init; help and history need the
// pipeline and the history store and are built by the entrypoint.
package command

import (
	"github.com/keshon/commandclient/internal/config"
	"github.com/keshon/commandclient/pkg/cmd"
)

const (
	categoryInformation = "🕯️ Information"
	categoryUtilities   = "📢 Utilities"
	categoryGameplay    = "🎲 Gameplay"
)

// Categorized is implemented by commands that belong to a help category.
type Categorized interface {
	Category() string
}

// CategoryOf returns the help category of c, looking through middleware
// wrappers. Commands without one are listed under "Other".
func CategoryOf(c cmd.Command) string {
	if cc, ok := cmd.Root(c).(Categorized); ok {
		return cc.Category()
	}
	return "Other"
}

func categoryWeight(c cmd.Command) int {
	return config.CategoryWeight(CategoryOf(c))
}
