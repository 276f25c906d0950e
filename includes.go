package main

import (
	"path/filepath"
	"regexp"

	"github.com/phuslu/log"
)

var includePattern = regexp.MustCompile(`(?m)^\s*#\s*include\s*["<]([^">]+)[">]`)

// ScanIncludes lists the file names of #include directives in order.
func ScanIncludes(_ *Node, contents string) ([]string, error) {
	var names []string
	for _, m := range includePattern.FindAllStringSubmatch(contents, -1) {
		names = append(names, m[1])
	}
	return names, nil
}

// MocIncludeCheck warns when moc output generated from a C++ source is not
// #included by that source. The build continues either way.
func MocIncludeCheck(env *Env, contents ContentProvider, logger *log.Logger) StepCheck {
	return func(step *Step) error {
		if len(step.Targets) == 0 || len(step.Sources) == 0 {
			return nil
		}
		moc, cpp := step.Targets[0], step.Sources[0]
		if included(moc, cpp, env.List("CPPPATH"), contents) {
			return nil
		}
		if logger != nil {
			logger.Warn().Str("moc", moc.Path).Str("source", cpp.Path).
				Msgf("Generated moc file '%s' is not included by '%s'", moc.Path, cpp.Path)
		}
		return nil
	}
}

func included(file, by *Node, searchPath []string, contents ContentProvider) bool {
	text, err := contents.Contents(by.Path)
	if err != nil {
		return false
	}
	names, _ := ScanIncludes(by, text)
	dirs := append([]string{by.Dir()}, searchPath...)
	for _, name := range names {
		for _, dir := range dirs {
			if filepath.Clean(filepath.Join(dir, name)) == file.Path {
				return true
			}
		}
	}
	return false
}
