package main

import (
	"path/filepath"
	"testing"
)

// memContents serves file text from memory, keyed by cleaned path.
type memContents map[string]string

func (m memContents) Exists(path string) bool {
	_, ok := m[filepath.Clean(path)]
	return ok
}

func (m memContents) Contents(path string) (string, error) {
	text, ok := m[filepath.Clean(path)]
	if !ok {
		return "", newError(ErrCodeContentUnavailable, "cannot read %s", path)
	}
	return text, nil
}

// qtTestVars names the Qt programs directly so that no installation has to be
// located.
func qtTestVars() map[string]Var {
	return map[string]Var{
		"QTDIR":        "/opt/qt4",
		"QT4_MOC":      "moc",
		"QT4_UIC":      "uic",
		"QT4_RCC":      "rcc",
		"QT4_LUPDATE":  "lupdate",
		"QT4_LRELEASE": "lrelease",
	}
}

// newQtTools applies the default and qt4 tools to a fresh environment.
func newQtTools(t *testing.T, contents ContentProvider, extra map[string]Var) *ToolContext {
	t.Helper()
	vars := qtTestVars()
	for k, v := range extra {
		vars[k] = v
	}
	env := NewEnv(vars, nil)
	tc := &ToolContext{
		Env:      env,
		Registry: NewRegistry(env, contents),
		Contents: contents,
	}
	if err := ApplyTools(tc, []string{"qt4"}); err != nil {
		t.Fatalf("ApplyTools() unexpected error: %v", err)
	}
	return tc
}

func newTestPlanner(tc *ToolContext) *Planner {
	return &Planner{
		Registrar:     tc.Registry,
		Contents:      tc.Contents,
		ObjectBuilder: StaticObjectBuilder,
		MocBuilder:    "Moc4",
		XMocBuilder:   "XMoc4",
	}
}

// compile registers a static object for each source and returns the objects.
func compile(t *testing.T, reg *Registry, sources ...string) []*Node {
	t.Helper()
	var objs []*Node
	for _, src := range sources {
		o, err := reg.Build(StaticObjectBuilder, NewNode(src), "")
		if err != nil {
			t.Fatalf("Build(%s) unexpected error: %v", src, err)
		}
		objs = append(objs, o...)
	}
	return objs
}

func paths(nodes []*Node) []string {
	return nodePaths(nodes)
}

// stepsFrom returns the registered steps of builder, in registration order.
func stepsFrom(reg *Registry, builder string) []*Step {
	var steps []*Step
	for _, s := range reg.Steps() {
		if s.Builder == builder {
			steps = append(steps, s)
		}
	}
	return steps
}
