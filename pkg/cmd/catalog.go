package cmd

import "sync"

// Source enumerates commands for bulk registration.
type Source interface {
	Commands() []Command
}

// DefaultCatalog collects commands that register themselves from init().
var DefaultCatalog = &Catalog{}

// Catalog is an append-only Source. Command packages add to it from init()
// and the bot registers the whole catalog once at startup.
type Catalog struct {
	mu       sync.Mutex
	commands []Command
}

// Add appends commands, applying mws to each.
func (c *Catalog) Add(cmd Command, mws ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, Apply(cmd, mws...))
}

// Commands returns the catalog's commands in the order they were added.
func (c *Catalog) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Provide adds cmd to DefaultCatalog.
func Provide(cmd Command, mws ...Middleware) {
	DefaultCatalog.Add(cmd, mws...)
}
