package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
	"gopkg.in/yaml.v3"
)

const configName = "aura.yaml"

// loadConfig decodes path and then each include on top of it. Includes that
// cannot be read are skipped with a warning.
func loadConfig(path string, logger *log.Logger) (Config, error) {
	cfg := Config{
		Targets: make(map[string]Target),
		Vars:    make(map[string]Var),
	}

	// #nosec G304 - the configuration path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, wrapError(err, ErrCodeConfigNotFound, "%s Not Found In '%s'", filepath.Base(path), filepath.Dir(path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, wrapError(err, ErrCodeInvalidConfig, "cannot parse %s", path)
	}

	for _, inc := range cfg.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(filepath.Dir(path), inc)
		}
		// #nosec G304 - includes are listed in the user's configuration
		incData, err := os.ReadFile(incPath)
		if err != nil {
			if logger != nil {
				logger.Warn().Str("include", inc).Msg("cannot load include")
			}
			continue
		}
		if err := yaml.Unmarshal(incData, &cfg); err != nil {
			return cfg, wrapError(err, ErrCodeInvalidConfig, "cannot parse %s", incPath)
		}
	}

	if cfg.Targets == nil {
		cfg.Targets = make(map[string]Target)
	}
	if cfg.Vars == nil {
		cfg.Vars = make(map[string]Var)
	}
	return cfg, nil
}

// loadDotEnv loads dir/.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return wrapError(err, ErrCodeInvalidConfig, "cannot load %s", path)
	}
	return nil
}

// validateConfig reports every problem found, not just the first.
func validateConfig(cfg Config) []error {
	var errs []error
	for _, name := range cfg.Tools {
		if _, ok := knownTools[name]; !ok {
			errs = append(errs, newError(ErrCodeUnknownTool, "unknown tool %q, known tools: %v", name, toolNames()))
		}
	}

	check := func(kind TargetKind, targets []LinkTarget) {
		seen := map[string]bool{}
		for i, lt := range targets {
			switch {
			case lt.Name == "":
				errs = append(errs, newError(ErrCodeInvalidConfig, "%s #%d has no name", kind, i+1))
			case seen[lt.Name]:
				errs = append(errs, newError(ErrCodeInvalidConfig, "%s %s is declared twice", kind, lt.Name))
			case len(lt.Sources) == 0:
				errs = append(errs, newError(ErrCodeInvalidConfig, "%s %s has no sources", kind, lt.Name))
			}
			seen[lt.Name] = true
		}
	}
	check(Program, cfg.Programs)
	check(StaticLibrary, cfg.Libraries)
	check(SharedLibrary, cfg.SharedLibraries)

	for name, t := range cfg.Targets {
		for _, dep := range t.Deps {
			if isFileDep(dep) {
				continue
			}
			if _, ok := cfg.Targets[dep]; !ok {
				errs = append(errs, newError(ErrCodeTargetNotFound, "target %s depends on unknown target %s", name, dep))
			}
		}
	}

	usesQt := false
	for _, t := range cfg.Tools {
		usesQt = usesQt || t == "qt4"
	}
	if !usesQt && (len(cfg.Qt4.Modules) > 0 || len(cfg.Qt4.Translations) > 0) {
		errs = append(errs, newError(ErrCodeInvalidConfig, "qt4 settings given but the qt4 tool is not enabled"))
	}
	for _, tr := range cfg.Qt4.Translations {
		if tr.Ts == "" {
			errs = append(errs, newError(ErrCodeInvalidConfig, "translation without a ts file"))
		}
	}
	return errs
}

// A dependency with a dot names a file rather than a target.
func isFileDep(dep string) bool {
	return strings.Contains(dep, ".")
}

func formatErrors(errs []error) string {
	s := ""
	for _, err := range errs {
		s += fmt.Sprintf("  - %v\n", err)
	}
	return s
}
