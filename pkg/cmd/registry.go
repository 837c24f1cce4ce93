package cmd

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateIdentifier is returned when a name or alias is already taken.
var ErrDuplicateIdentifier = errors.New("duplicate command identifier")

// Registry is the ordered set of registered commands. Lookup walks commands in
// registration order and returns the first match. It does not dispatch.
type Registry struct {
	mu       sync.RWMutex
	commands []Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends c unless its name or one of its aliases is already claimed
// by a registered command. A failed registration leaves the registry as it was.
func (r *Registry) Register(c Command) error {
	if c == nil {
		return errors.New("cannot register nil command")
	}
	if c.Name() == "" {
		return errors.New("cannot register command without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range Identifiers(c) {
		for _, existing := range r.commands {
			if existing.Check(id) {
				return fmt.Errorf("%w: alias/name %s already exists", ErrDuplicateIdentifier, id)
			}
		}
	}

	r.commands = append(r.commands, c)
	return nil
}

// RegisterMany registers commands in order and stops at the first error.
// Commands registered before the failing one stay registered.
func (r *Registry) RegisterMany(cs ...Command) error {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFrom registers every command a Source enumerates.
func (r *Registry) RegisterFrom(src Source) error {
	return r.RegisterMany(src.Commands()...)
}

// UnregisterAll removes every command.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// Resolve returns the first command whose name or alias matches token,
// ignoring case.
func (r *Registry) Resolve(token string) (Command, bool) {
	if token == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.commands {
		if c.Check(token) {
			return c, true
		}
	}
	return nil, false
}

// All returns the registered commands in registration order.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
