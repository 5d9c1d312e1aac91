// Package command binds the host's textual command surface to the
// scheduler. The host user-agent forwards each command line; the router
// dispatches it to the registered handler and returns the reply line.
package command

import (
	"fmt"
	"strings"
	"sync"
)

// HandlerFunc is the signature for command handlers. args is the command
// line with the command name stripped. The returned string is the reply
// printed by the host CLI; it may be empty.
type HandlerFunc func(args string) string

// Router dispatches command lines to registered handlers.
type Router struct {
	mu       sync.RWMutex
	commands map[string]HandlerFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{commands: make(map[string]HandlerFunc)}
}

// Register registers a handler for the given command name. A later
// registration for the same name replaces the earlier one.
func (r *Router) Register(name string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = handler
}

// Dispatch routes one command line to its handler and returns the reply.
// Returns an error for blank lines and unknown command names.
func (r *Router) Dispatch(line string) (string, error) {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return "", fmt.Errorf("command: empty line")
	}

	r.mu.RLock()
	handler, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("command: unknown command %q", name)
	}
	return handler(strings.TrimSpace(args)), nil
}

// Names returns the registered command names, for help output.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}
