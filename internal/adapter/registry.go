package adapter

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]func() Adapter{}

// register maps a database type name and its aliases to an adapter
// constructor. Called from each variant's init.
func register(fn func() Adapter, names ...string) {
	for _, name := range names {
		registry[name] = fn
	}
}

// New returns the adapter variant for the given database type.
func New(dbType string) (Adapter, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(dbType))]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %q (supported: %s)",
			dbType, strings.Join(Types(), ", "))
	}
	return fn(), nil
}

// Types lists every registered database type name, aliases included.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
