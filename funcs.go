package main

import (
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// SubstContext carries the builtins that depend on what is being expanded.
type SubstContext struct {
	Name    string
	Targets []string
	Sources []string
}

// VarFunc computes a variable from the rest of the environment, for values
// such as "-I" flags that are derived from a path list.
type VarFunc func(e *Env) string

// Env holds construction variables. Lookup order is explicit values, computed
// values, tool defaults, then the process environment.
type Env struct {
	vars     map[string]Var
	funcs    map[string]VarFunc
	defaults map[string]Var
	logger   *log.Logger
}

func NewEnv(vars map[string]Var, logger *log.Logger) *Env {
	e := &Env{
		vars:     make(map[string]Var, len(vars)),
		funcs:    make(map[string]VarFunc),
		defaults: make(map[string]Var),
		logger:   logger,
	}
	for k, v := range vars {
		e.vars[k] = v
	}
	return e
}

func (e *Env) Set(name string, v Var) {
	e.vars[name] = v
}

// SetDefault only takes effect while name has no explicit value.
func (e *Env) SetDefault(name string, v Var) {
	e.defaults[name] = v
}

func (e *Env) SetFunc(name string, fn VarFunc) {
	e.funcs[name] = fn
}

// Lookup returns the raw, unexpanded value of a variable.
func (e *Env) Lookup(name string) (string, bool) {
	if v, ok := e.vars[name]; ok {
		return string(v), true
	}
	if fn, ok := e.funcs[name]; ok {
		return fn(e), true
	}
	if v, ok := e.defaults[name]; ok {
		return string(v), true
	}
	return os.LookupEnv(name)
}

// Get a builtin else -> variable -> environment variable
func (e *Env) GetVar(name string, sc SubstContext) (string, bool) {
	name = strings.Trim(name, "$")
	switch name {
	case "TIMESTAMP":
		return time.Now().Format("2006-01-02 15:04:05"), true
	case "@":
		return sc.Name, true
	case "cwd":
		path, _ := os.Getwd()
		return path, true
	case "TARGET":
		if len(sc.Targets) > 0 {
			return sc.Targets[0], true
		}
	case "TARGETS":
		if len(sc.Targets) > 0 {
			return strings.Join(sc.Targets, " "), true
		}
	case "SOURCE":
		if len(sc.Sources) > 0 {
			return sc.Sources[0], true
		}
	case "SOURCES":
		if len(sc.Sources) > 0 {
			return strings.Join(sc.Sources, " "), true
		}
	}
	return e.Lookup(name)
}

// Int expands a variable and parses it. Missing or non-numeric values keep def.
func (e *Env) Int(name string, def int) int {
	raw, ok := e.Lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(e.Subst(raw, SubstContext{})))
	if err != nil {
		return def
	}
	return n
}

// String expands a variable, returning "" when it is not set.
func (e *Env) String(name string) string {
	raw, ok := e.Lookup(name)
	if !ok {
		return ""
	}
	return e.Subst(raw, SubstContext{})
}

// List expands a variable and splits it on whitespace.
func (e *Env) List(name string) []string {
	return strings.Fields(e.String(name))
}

// AppendUnique adds values that are not already part of the list variable.
func (e *Env) AppendUnique(name string, values ...string) {
	list := e.rawList(name)
	for _, v := range values {
		if v != "" && !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	e.vars[name] = Var(strings.Join(list, " "))
}

// PrependUnique puts values in front of the list, keeping their order.
func (e *Env) PrependUnique(name string, values ...string) {
	list := e.rawList(name)
	var head []string
	for _, v := range values {
		if v != "" && !slices.Contains(list, v) && !slices.Contains(head, v) {
			head = append(head, v)
		}
	}
	e.vars[name] = Var(strings.Join(append(head, list...), " "))
}

func (e *Env) rawList(name string) []string {
	raw, _ := e.Lookup(name)
	return strings.Fields(raw)
}
