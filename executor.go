package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agilira/orpheus/pkg/orpheus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type RunOptions struct {
	Verbose bool
	DryRun  bool
	Force   bool
	Jobs    int
	Out     io.Writer
}

func (o RunOptions) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func ExecuteCommand(ctx context.Context, command string) (string, error) {
	var cmd *exec.Cmd

	// Check for empty command
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("empty command")
	}

	if strings.HasPrefix(command, "cd ") {
		dir := strings.TrimSpace(strings.TrimPrefix(command, "cd "))
		if dir == "" {
			return "", fmt.Errorf("no directory specified for cd")
		}
		if err := os.Chdir(dir); err != nil {
			return "", err
		}
		return "", nil
	}

	// Windows
	if runtime.GOOS == "windows" {
		// #nosec G204 - commands come from aura.yaml
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		// Linux && MacOsX
		// #nosec G204 - commands come from aura.yaml
		cmd = exec.CommandContext(ctx, "/bin/bash", "-c", command)
	}

	out, err := cmd.CombinedOutput()
	return string(out), err
}

// ExecuteCommandWithOptions echoes the command, then runs it unless this is a
// dry run.
func ExecuteCommandWithOptions(ctx context.Context, command string, opts RunOptions) (string, error) {
	w := opts.out()
	if opts.DryRun {
		fmt.Fprintf(w, "  [DRY RUN] Would execute: %s\n", command)
		return "", nil
	}
	if opts.Verbose {
		fmt.Fprintf(w, "→ %s\n", command)
	} else {
		fmt.Fprintln(w, command)
	}
	return ExecuteCommand(ctx, command)
}

// ExecuteAll runs the commands of a shell target in order.
func (p *Project) ExecuteAll(ctx context.Context, name string, target *Target, opts RunOptions) error {
	for _, cmd := range target.Run {
		cmd = p.Env.Subst(cmd, SubstContext{Name: name})
		out, err := ExecuteCommandWithOptions(ctx, cmd, opts)

		// If error then (get target on_error || cmd stderr)
		if err != nil && !opts.DryRun {
			outerr := fmt.Sprintf("in %s -> \n", name)
			if strings.TrimSpace(target.Onerror) == "" {
				outerr += err.Error()
			} else {
				outerr += target.Onerror
			}

			if SkipError(target.ContinueOnError, &p.Config) {
				p.Logger.Warn().Str("target", name).Msg(outerr)
			} else {
				return orpheus.ExecutionError(name, outerr)
			}
		}

		if strings.TrimSpace(out) != "" && !opts.DryRun {
			fmt.Fprint(opts.out(), out)
		}
	}
	return nil
}

func (p *Project) RunDeps(ctx context.Context, t *Target, opts RunOptions, visiting map[string]bool) error {
	for _, dep := range t.Deps {
		if isFileDep(dep) {
			if _, err := os.Stat(dep); err != nil {
				p.Logger.Warn().Str("file", dep).Msg("file dependency does not exist")
			}
			continue
		}
		if err := p.runTarget(ctx, dep, opts, visiting); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) RunPrologue(ctx context.Context, opts RunOptions) error {
	if err := p.RunDeps(ctx, &p.Config.Prologue, opts, map[string]bool{}); err != nil {
		return err
	}
	return p.ExecuteAll(ctx, "prologue", &p.Config.Prologue, opts)
}

func (p *Project) RunEpilogue(ctx context.Context, opts RunOptions) error {
	if err := p.RunDeps(ctx, &p.Config.Epilogue, opts, map[string]bool{}); err != nil {
		return err
	}
	return p.ExecuteAll(ctx, "epilogue", &p.Config.Epilogue, opts)
}

func (p *Project) RunTarget(ctx context.Context, name string, opts RunOptions) error {
	return p.runTarget(ctx, name, opts, map[string]bool{})
}

func (p *Project) runTarget(ctx context.Context, name string, opts RunOptions, visiting map[string]bool) error {
	target, ok := p.Config.Targets[name]
	if !ok || (target.Run == nil && target.Deps == nil) {
		return orpheus.NotFoundError(name, fmt.Sprintf("target '%s' not found", name))
	}
	if visiting[name] {
		return newError(ErrCodeDependencyCycle, "target %s depends on itself", name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	if err := p.RunDeps(ctx, &target, opts, visiting); err != nil {
		return err
	}
	return p.ExecuteAll(ctx, name, &target, opts)
}

// ScheduleSteps groups steps into waves. A step only depends on steps of
// earlier waves; steps within one wave are independent.
func ScheduleSteps(steps []*Step) ([][]*Step, error) {
	producer := make(map[string]int, len(steps))
	for i, s := range steps {
		for _, t := range s.Targets {
			producer[t.Path] = i
		}
	}

	indegree := make([]int, len(steps))
	dependents := make([][]int, len(steps))
	for i, s := range steps {
		seen := map[int]bool{}
		for _, dep := range s.Dependencies() {
			j, ok := producer[dep]
			if !ok || seen[j] {
				continue
			}
			if j == i {
				return nil, newError(ErrCodeDependencyCycle, "%s depends on its own output %s", s.Builder, dep)
			}
			seen[j] = true
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var waves [][]*Step
	var ready []int
	for i := range steps {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	done := 0
	for len(ready) > 0 {
		wave := make([]*Step, len(ready))
		var next []int
		for k, i := range ready {
			wave[k] = steps[i]
			for _, d := range dependents[i] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		sort.Ints(next)
		waves = append(waves, wave)
		done += len(ready)
		ready = next
	}

	if done != len(steps) {
		var stuck []string
		for i, s := range steps {
			if indegree[i] > 0 {
				stuck = append(stuck, s.TargetPaths()...)
			}
		}
		return nil, newError(ErrCodeDependencyCycle, "dependency cycle between %s", strings.Join(stuck, ", "))
	}
	return waves, nil
}

// BuildSteps plans the project and runs the steps needed for goals, or every
// registered step when no goal is given, at most opts.Jobs at a time.
func (p *Project) BuildSteps(ctx context.Context, opts RunOptions, goals ...string) error {
	if err := p.Plan(); err != nil {
		return err
	}
	steps := p.Registry.Steps()
	if len(goals) > 0 {
		steps = p.stepsFor(goals)
	}
	waves, err := ScheduleSteps(steps)
	if err != nil {
		return err
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	opts.Out = &syncWriter{w: opts.out()}

	for _, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(jobs)
		for _, step := range wave {
			g.Go(func() error {
				return p.runStep(gctx, step, opts)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// stepsFor returns the steps producing goals and everything they depend on,
// in registration order.
func (p *Project) stepsFor(goals []string) []*Step {
	want := map[*Step]bool{}
	var visit func(path string)
	visit = func(path string) {
		s, ok := p.Registry.StepFor(path)
		if !ok || want[s] {
			return
		}
		want[s] = true
		for _, dep := range s.Dependencies() {
			visit(dep)
		}
	}
	for _, g := range goals {
		visit(g)
	}

	var steps []*Step
	for _, s := range p.Registry.Steps() {
		if want[s] {
			steps = append(steps, s)
		}
	}
	return steps
}

func (p *Project) runStep(ctx context.Context, step *Step, opts RunOptions) error {
	if !opts.Force && upToDate(step) {
		p.Logger.Debug().Strs("targets", step.TargetPaths()).Msg("up to date")
		return nil
	}

	cmd := p.Env.Subst(step.Command, SubstContext{
		Name:    step.Builder,
		Targets: step.TargetPaths(),
		Sources: step.SourcePaths(),
	})
	if !opts.DryRun {
		for _, t := range step.Targets {
			if err := os.MkdirAll(t.Dir(), 0o755); err != nil {
				return err
			}
		}
	}

	out, err := ExecuteCommandWithOptions(ctx, cmd, opts)
	if strings.TrimSpace(out) != "" {
		fmt.Fprint(opts.out(), out)
	}
	if err != nil {
		return wrapError(err, ErrCodeTargetError, "TargetError: %s", strings.Join(step.TargetPaths(), " "))
	}
	if opts.DryRun {
		return nil
	}
	if p.Contents != nil {
		p.Contents.Invalidate(step.TargetPaths()...)
	}

	for _, check := range step.Checks {
		if err := check(step); err != nil {
			return err
		}
	}
	return nil
}

// upToDate reports whether every output exists and is not older than any
// existing dependency.
func upToDate(step *Step) bool {
	var oldest time.Time
	for _, t := range step.Targets {
		info, err := os.Stat(t.Path)
		if err != nil {
			return false
		}
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}
	return !latestModTime(step.Dependencies()).After(oldest)
}

func latestModTime(paths []string) time.Time {
	var latest time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}

// Clean removes the outputs of every registered step and returns the paths
// removed (or, in a dry run, that would be removed).
func (p *Project) Clean(opts RunOptions) ([]string, error) {
	if err := p.Plan(); err != nil {
		return nil, err
	}
	var removed []string
	for _, step := range p.Registry.Steps() {
		for _, t := range step.TargetPaths() {
			if _, err := os.Stat(t); err != nil {
				continue
			}
			if !opts.DryRun {
				if err := os.Remove(t); err != nil {
					return removed, err
				}
			}
			removed = append(removed, t)
		}
	}
	return removed, nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

func (p *Project) listTargets(w io.Writer, format string) error {
	switch format {
	case "json":
		return p.listTargetsJSON(w)
	case "yaml":
		return p.listTargetsYAML(w)
	default: // table
		return p.listTargetsTable(w)
	}
}

func (p *Project) sortedTargetNames() []string {
	names := make([]string, 0, len(p.Config.Targets))
	for name := range p.Config.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Project) listTargetsTable(w io.Writer) error {
	fmt.Fprintln(w, "Available targets:")
	fmt.Fprintln(w, "------------------")

	if len(p.Config.Targets) == 0 {
		fmt.Fprintln(w, "No targets found")
		return nil
	}

	// Find max name length for formatting
	maxNameLen := 0
	for name := range p.Config.Targets {
		if len(name) > maxNameLen {
			maxNameLen = len(name)
		}
	}

	for _, name := range p.sortedTargetNames() {
		target := p.Config.Targets[name]
		padding := strings.Repeat(" ", maxNameLen-len(name)+2)
		deps := ""
		if len(target.Deps) > 0 {
			deps = fmt.Sprintf(" (depends: %s)", strings.Join(target.Deps, ", "))
		}
		fmt.Fprintf(w, "  %s%s%d commands%s\n", name, padding, len(target.Run), deps)
	}

	fmt.Fprintf(w, "\nTotal: %d targets\n", len(p.Config.Targets))
	return nil
}

type targetInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Commands int      `json:"commands" yaml:"commands"`
	Deps     []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

func (p *Project) targetInfos() []targetInfo {
	var targets []targetInfo
	for _, name := range p.sortedTargetNames() {
		target := p.Config.Targets[name]
		targets = append(targets, targetInfo{
			Name:     name,
			Commands: len(target.Run),
			Deps:     target.Deps,
		})
	}
	return targets
}

func (p *Project) listTargetsJSON(w io.Writer) error {
	targets := p.targetInfos()
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"targets": targets,
		"total":   len(targets),
	})
}

func (p *Project) listTargetsYAML(w io.Writer) error {
	targets := p.targetInfos()
	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(map[string]interface{}{
		"targets": targets,
		"total":   len(targets),
	})
}

type stepInfo struct {
	Builder string   `json:"builder" yaml:"builder"`
	Sources []string `json:"sources" yaml:"sources"`
	Targets []string `json:"targets" yaml:"targets"`
	Command string   `json:"command" yaml:"command"`
}

func (p *Project) stepInfos() []stepInfo {
	steps := p.Registry.Steps()
	infos := make([]stepInfo, len(steps))
	for i, s := range steps {
		infos[i] = stepInfo{
			Builder: s.Builder,
			Sources: s.SourcePaths(),
			Targets: s.TargetPaths(),
			Command: p.Env.Subst(s.Command, SubstContext{
				Name:    s.Builder,
				Targets: s.TargetPaths(),
				Sources: s.SourcePaths(),
			}),
		}
	}
	return infos
}

// listPlan prints the registered steps in registration order.
func (p *Project) listPlan(w io.Writer, format string) error {
	if err := p.Plan(); err != nil {
		return err
	}
	steps := p.stepInfos()
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{"steps": steps, "total": len(steps)})
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()
		return encoder.Encode(map[string]interface{}{"steps": steps, "total": len(steps)})
	}

	fmt.Fprintln(w, "Planned steps:")
	fmt.Fprintln(w, "--------------")
	if len(steps) == 0 {
		fmt.Fprintln(w, "No steps planned")
		return nil
	}
	width := 0
	for _, s := range steps {
		if len(s.Builder) > width {
			width = len(s.Builder)
		}
	}
	for _, s := range steps {
		fmt.Fprintf(w, "  %-*s  %s <- %s\n", width, s.Builder,
			strings.Join(s.Targets, " "), strings.Join(slashPaths(s.Sources), " "))
	}
	fmt.Fprintf(w, "\nTotal: %d steps\n", len(steps))
	return nil
}

func slashPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}
