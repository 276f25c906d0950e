package main

import (
	"path/filepath"
	"slices"

	"github.com/phuslu/log"
)

// Project is a loaded aura.yaml with its tools applied.
type Project struct {
	Dir      string
	Config   Config
	Env      *Env
	Registry *Registry
	Contents *FileContents
	Logger   *log.Logger

	// outputs maps program and library names to the files they produce.
	outputs map[string]string
	planned bool
}

// openProject loads dir/.env and dir/aura.yaml, validates the configuration
// and applies its tools. Tool failures (Qt not installed, unknown module) end
// here, before any planning.
func openProject(dir string, logger *log.Logger) (*Project, error) {
	if logger == nil {
		logger = newLogger("info", nil)
	}
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(filepath.Join(dir, configName), logger)
	if err != nil {
		return nil, err
	}
	if errs := validateConfig(cfg); len(errs) > 0 {
		return nil, newError(ErrCodeInvalidConfig, "invalid %s:\n%s", configName, formatErrors(errs))
	}
	return newProject(dir, cfg, logger)
}

func newProject(dir string, cfg Config, logger *log.Logger) (*Project, error) {
	contents, err := NewFileContents(0)
	if err != nil {
		return nil, err
	}
	env := NewEnv(cfg.Vars, logger)
	reg := NewRegistry(env, contents)

	tc := &ToolContext{Env: env, Registry: reg, Contents: contents, Logger: logger}
	if err := ApplyTools(tc, cfg.Tools); err != nil {
		return nil, err
	}
	if slices.Contains(cfg.Tools, "qt4") && len(cfg.Qt4.Modules) > 0 {
		err := EnableModules(env, cfg.Qt4.Modules, ModuleOptions{
			Debug:          cfg.Qt4.Debug,
			CrossCompiling: cfg.Qt4.CrossCompiling,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Project{
		Dir:      dir,
		Config:   cfg,
		Env:      env,
		Registry: reg,
		Contents: contents,
		Logger:   logger,
	}, nil
}

// Plan registers the steps of every program, library and translation once.
func (p *Project) Plan() error {
	if p.planned {
		return nil
	}
	groups := []struct {
		kind    TargetKind
		targets []LinkTarget
	}{
		{Program, p.Config.Programs},
		{StaticLibrary, p.Config.Libraries},
		{SharedLibrary, p.Config.SharedLibraries},
	}
	p.outputs = make(map[string]string)
	for _, g := range groups {
		for _, lt := range g.targets {
			node, err := PlanLinkTarget(p.Env, p.Registry, g.kind, lt)
			if err != nil {
				return err
			}
			p.outputs[lt.Name] = node.Path
			p.Logger.Debug().Str("kind", g.kind.String()).Str("target", node.Path).Msg("planned")
		}
	}
	for _, tr := range p.Config.Qt4.Translations {
		if _, err := PlanTranslation(p.Registry, tr); err != nil {
			return err
		}
	}
	p.planned = true
	return nil
}

// Output returns the file built for a program or library name.
func (p *Project) Output(name string) (string, bool) {
	if err := p.Plan(); err != nil {
		return "", false
	}
	out, ok := p.outputs[name]
	return out, ok
}
