package main

import (
	"path/filepath"
	"strings"
)

// Scanner lists the implicit dependencies of a source, as names relative to
// the source's directory.
type Scanner func(source *Node, contents string) ([]string, error)

// StepCheck runs after a step's command succeeded.
type StepCheck func(step *Step) error

// Action is how a builder turns one kind of source into its output.
type Action struct {
	Command string
	Prefix  string
	Suffix  string
	Checks  []StepCheck
}

// Builder maps source suffixes to actions. The action registered under ""
// handles any suffix without its own entry.
type Builder struct {
	Name    string
	Scanner Scanner
	actions map[string]Action
}

func NewBuilder(name string) *Builder {
	return &Builder{Name: name, actions: make(map[string]Action)}
}

func (b *Builder) AddAction(srcSuffix string, a Action) *Builder {
	b.actions[srcSuffix] = a
	return b
}

func (b *Builder) WithScanner(s Scanner) *Builder {
	b.Scanner = s
	return b
}

func (b *Builder) action(src *Node) (Action, bool) {
	if a, ok := b.actions[src.Ext()]; ok {
		return a, true
	}
	a, ok := b.actions[""]
	return a, ok
}

// Step is one registered command: its inputs, outputs and command template.
type Step struct {
	Builder string
	Sources []*Node
	Targets []*Node
	Command string
	// Implicit holds scanned dependencies, resolved against the source directory.
	Implicit []string
	// IgnoreSelf drops the step's own outputs from its implicit dependencies.
	IgnoreSelf bool
	Checks     []StepCheck
}

func (s *Step) TargetPaths() []string {
	return nodePaths(s.Targets)
}

func (s *Step) SourcePaths() []string {
	return nodePaths(s.Sources)
}

// Dependencies are the inputs the step waits for: sources plus scanned
// implicit dependencies.
func (s *Step) Dependencies() []string {
	deps := s.SourcePaths()
	for _, dep := range s.Implicit {
		if s.IgnoreSelf && s.produces(dep) {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

func (s *Step) produces(path string) bool {
	for _, t := range s.Targets {
		if t.Path == path {
			return true
		}
	}
	return false
}

func nodePaths(nodes []*Node) []string {
	paths := make([]string, len(nodes))
	for i, n := range nodes {
		paths[i] = n.Path
	}
	return paths
}

// Registrar registers build steps. Build returns the outputs of the step that
// builds source with the named builder; target overrides the output name.
type Registrar interface {
	Build(builder string, source *Node, target string) ([]*Node, error)
	Ignore(node *Node)
}

// Emitter rewrites the inputs of a link target before its link step is
// registered.
type Emitter func(env *Env, target *Node, sources []*Node) ([]*Node, error)

// Registry owns builders, emitters and the steps registered so far.
type Registry struct {
	env      *Env
	contents ContentProvider
	builders map[string]*Builder
	emitters map[string][]Emitter
	steps    []*Step
	byTarget map[string]*Step
}

func NewRegistry(env *Env, contents ContentProvider) *Registry {
	return &Registry{
		env:      env,
		contents: contents,
		builders: make(map[string]*Builder),
		emitters: make(map[string][]Emitter),
		byTarget: make(map[string]*Step),
	}
}

func (r *Registry) AddBuilder(b *Builder) {
	r.builders[b.Name] = b
}

func (r *Registry) Builder(name string) (*Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

func (r *Registry) AddEmitter(builder string, em Emitter) {
	r.emitters[builder] = append(r.emitters[builder], em)
}

func (r *Registry) Emitters(builder string) []Emitter {
	return r.emitters[builder]
}

func (r *Registry) Steps() []*Step {
	return r.steps
}

// StepFor returns the step producing path, if any.
func (r *Registry) StepFor(path string) (*Step, bool) {
	s, ok := r.byTarget[filepath.Clean(path)]
	return s, ok
}

func (r *Registry) Build(builder string, source *Node, target string) ([]*Node, error) {
	return r.BuildAll(builder, []*Node{source}, target)
}

// BuildAll registers a step with several sources. The action is chosen by the
// first source. Registering the same builder, sources and target again
// returns the outputs of the existing step.
func (r *Registry) BuildAll(builder string, sources []*Node, target string) ([]*Node, error) {
	b, ok := r.builders[builder]
	if !ok {
		return nil, newError(ErrCodeUnknownBuilder, "builder %s is not registered", builder)
	}
	if len(sources) == 0 {
		return nil, newError(ErrCodeInvalidConfig, "%s: no sources", builder)
	}
	first := sources[0]
	act, ok := b.action(first)
	if !ok {
		return nil, newError(ErrCodeUnknownBuilder, "%s cannot build from %s files (%s)", builder, first.Ext(), first.Path)
	}

	if target == "" {
		prefix := r.env.Subst(act.Prefix, SubstContext{})
		suffix := r.env.Subst(act.Suffix, SubstContext{})
		target = filepath.Join(first.Dir(), prefix+first.Stem()+suffix)
	}
	target = filepath.Clean(target)

	if existing, ok := r.byTarget[target]; ok {
		if existing.Builder == builder && sameNodes(existing.Sources, sources) {
			return existing.Targets, nil
		}
		return nil, newError(ErrCodeTargetConflict, "two different steps build %s (%s from %s, %s from %s)",
			target, existing.Builder, strings.Join(existing.SourcePaths(), " "), builder, strings.Join(nodePaths(sources), " "))
	}

	out := &Node{Path: target, Builder: builder, Sources: sources}
	step := &Step{
		Builder: builder,
		Sources: sources,
		Targets: []*Node{out},
		Command: act.Command,
		Checks:  act.Checks,
	}
	if b.Scanner != nil {
		step.Implicit = r.scan(b.Scanner, sources)
	}

	r.steps = append(r.steps, step)
	r.byTarget[target] = step
	return step.Targets, nil
}

// Ignore excludes node from the dependency scan of the step that builds it.
func (r *Registry) Ignore(node *Node) {
	if s, ok := r.byTarget[node.Path]; ok {
		s.IgnoreSelf = true
	}
}

// scan runs the builder's scanner on sources that can be read now. Sources
// that do not exist yet are generated later and contribute nothing.
func (r *Registry) scan(scanner Scanner, sources []*Node) []string {
	var deps []string
	for _, src := range sources {
		if r.contents == nil || !r.contents.Exists(src.Path) {
			continue
		}
		text, err := r.contents.Contents(src.Path)
		if err != nil {
			continue
		}
		names, err := scanner(src, text)
		if err != nil {
			if r.env.logger != nil {
				r.env.logger.Warn().Err(err).Str("source", src.Path).Msg("dependency scan failed")
			}
			continue
		}
		for _, name := range names {
			dep := filepath.Clean(filepath.Join(src.Dir(), name))
			if filepath.IsAbs(name) {
				dep = filepath.Clean(name)
			}
			deps = append(deps, dep)
		}
	}
	return deps
}

func sameNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Path != b[i].Path {
			return false
		}
	}
	return true
}
