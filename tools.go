package main

import (
	"sort"

	"github.com/phuslu/log"
)

// ToolContext is what a tool may extend: variables, builders and emitters.
type ToolContext struct {
	Env      *Env
	Registry *Registry
	Contents ContentProvider
	Logger   *log.Logger
}

type Tool func(tc *ToolContext) error

var knownTools = map[string]Tool{
	"default": GenerateDefault,
	"qt4":     GenerateQt4,
}

func toolNames() []string {
	names := make([]string, 0, len(knownTools))
	for name := range knownTools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyTools runs the default tool and then every named tool once, in order.
func ApplyTools(tc *ToolContext, names []string) error {
	applied := map[string]bool{}
	for _, name := range append([]string{"default"}, names...) {
		if applied[name] {
			continue
		}
		tool, ok := knownTools[name]
		if !ok {
			return newError(ErrCodeUnknownTool, "unknown tool %q, known tools: %v", name, toolNames())
		}
		if err := tool(tc); err != nil {
			return err
		}
		applied[name] = true
	}
	return nil
}
