package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/agilira/orpheus/pkg/orpheus"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newApp() *orpheus.App {
	app := orpheus.New("aura").
		SetDescription("Build tool for C++ and Qt4 projects described in aura.yaml").
		SetVersion(version)

	app.AddCommand(withCommonFlags(orpheus.NewCommand("build", "Build programs and libraries, or run targets").
		SetHandler(buildCommand).
		AddFlag("targets", "t", "", "Comma-separated list of targets to run").
		AddIntFlag("parallel", "p", runtime.NumCPU(), "Number of parallel jobs").
		AddBoolFlag("force", "f", false, "Force rebuild of all targets").
		AddBoolFlag("verbose", "", false, "Verbose output").
		AddBoolFlag("dry-run", "n", false, "Print commands without running them")))

	app.AddCommand(withCommonFlags(orpheus.NewCommand("plan", "Show the build steps that would be registered").
		SetHandler(planCommand).
		AddFlag("format", "", "table", "Output format (table, json, yaml)")))

	app.AddCommand(withCommonFlags(orpheus.NewCommand("list", "List available targets").
		SetHandler(listCommand).
		AddFlag("format", "", "table", "Output format (table, json, yaml)")))

	app.AddCommand(withCommonFlags(orpheus.NewCommand("validate", "Validate aura.yaml").
		SetHandler(validateCommand)))

	app.AddCommand(withCommonFlags(orpheus.NewCommand("clean", "Remove generated files").
		SetHandler(cleanCommand).
		AddBoolFlag("dry-run", "n", false, "Print files without removing them")))

	app.AddCommand(orpheus.NewCommand("modules", "List the Qt4 modules that can be enabled").
		SetHandler(modulesCommand))

	return app
}

func withCommonFlags(cmd *orpheus.Command) *orpheus.Command {
	return cmd.
		AddFlag("dir", "D", ".", "Working directory").
		AddFlag("log-level", "", "info", "Log level (debug, info, warn, error)")
}

type cliOptions struct {
	Dir      string
	LogLevel string
	Format   string
	Targets  []string
	Run      RunOptions
}

func optionsFrom(ctx *orpheus.Context) cliOptions {
	return cliOptions{
		Dir:      ctx.GetFlagString("dir"),
		LogLevel: ctx.GetFlagString("log-level"),
		Run:      RunOptions{Out: os.Stdout},
	}
}

// open enters the working directory and loads its project. Commands and
// source paths in aura.yaml are relative to that directory.
func (o cliOptions) open() (*Project, error) {
	if o.Dir != "" && o.Dir != "." {
		if err := os.Chdir(o.Dir); err != nil {
			return nil, wrapError(err, ErrCodeConfigNotFound, "cannot enter %s", o.Dir)
		}
	}
	return openProject(".", newLogger(o.LogLevel, nil))
}

func (o cliOptions) out() io.Writer {
	return o.Run.out()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildCommand(ctx *orpheus.Context) error {
	o := optionsFrom(ctx)
	o.Targets = append(splitList(ctx.GetFlagString("targets")), ctx.Args...)
	o.Run.Jobs = ctx.GetFlagInt("parallel")
	o.Run.Force = ctx.GetFlagBool("force")
	o.Run.Verbose = ctx.GetFlagBool("verbose")
	o.Run.DryRun = ctx.GetFlagBool("dry-run")

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runBuild(sigctx, o)
}

// runBuild runs the prologue, then each named target in order, then the
// epilogue. A name is a shell target, a program or library name, or the path
// of a planned file. Without names every planned step is built.
func runBuild(ctx context.Context, o cliOptions) error {
	p, err := o.open()
	if err != nil {
		return err
	}
	if err := p.Plan(); err != nil {
		return err
	}
	if err := p.RunPrologue(ctx, o.Run); err != nil {
		return err
	}

	if len(o.Targets) == 0 {
		if err := p.BuildSteps(ctx, o.Run); err != nil {
			return err
		}
	}
	for _, name := range o.Targets {
		if _, ok := p.Config.Targets[name]; ok {
			if err := p.RunTarget(ctx, name, o.Run); err != nil {
				return err
			}
			continue
		}
		goal := name
		if out, ok := p.Output(name); ok {
			goal = out
		}
		if _, ok := p.Registry.StepFor(goal); !ok {
			return p.RunTarget(ctx, name, o.Run)
		}
		if err := p.BuildSteps(ctx, o.Run, goal); err != nil {
			return err
		}
	}

	return p.RunEpilogue(ctx, o.Run)
}

func planCommand(ctx *orpheus.Context) error {
	o := optionsFrom(ctx)
	o.Format = ctx.GetFlagString("format")
	return runPlan(o)
}

func runPlan(o cliOptions) error {
	p, err := o.open()
	if err != nil {
		return err
	}
	return p.listPlan(o.out(), o.Format)
}

func listCommand(ctx *orpheus.Context) error {
	o := optionsFrom(ctx)
	o.Format = ctx.GetFlagString("format")
	p, err := o.open()
	if err != nil {
		return err
	}
	return p.listTargets(o.out(), o.Format)
}

func validateCommand(ctx *orpheus.Context) error {
	return runValidate(optionsFrom(ctx))
}

// runValidate loads the project, applies its tools and plans it, which
// surfaces configuration, toolchain and source problems without building.
func runValidate(o cliOptions) error {
	p, err := o.open()
	if err != nil {
		return err
	}
	if err := p.Plan(); err != nil {
		return err
	}
	fmt.Fprintf(o.out(), "%s is valid: %d targets, %d programs, %d libraries, %d steps\n",
		configName, len(p.Config.Targets), len(p.Config.Programs),
		len(p.Config.Libraries)+len(p.Config.SharedLibraries), len(p.Registry.Steps()))
	return nil
}

func cleanCommand(ctx *orpheus.Context) error {
	o := optionsFrom(ctx)
	o.Run.DryRun = ctx.GetFlagBool("dry-run")
	return runClean(o)
}

func runClean(o cliOptions) error {
	p, err := o.open()
	if err != nil {
		return err
	}
	removed, err := p.Clean(o.Run)
	for _, path := range removed {
		if o.Run.DryRun {
			fmt.Fprintf(o.out(), "  [DRY RUN] Would remove: %s\n", path)
		} else {
			fmt.Fprintf(o.out(), "Removed %s\n", path)
		}
	}
	return err
}

func modulesCommand(ctx *orpheus.Context) error {
	return listModules(os.Stdout)
}

func listModules(w io.Writer) error {
	for _, m := range validQt4Modules {
		defines := strings.Join(qt4ModuleDefines[m], " ")
		if defines == "" {
			fmt.Fprintln(w, m)
			continue
		}
		fmt.Fprintf(w, "%-22s %s\n", m, defines)
	}
	return nil
}
