package main

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

const (
	StaticObjectBuilder  = "StaticObject"
	SharedObjectBuilder  = "SharedObject"
	ProgramBuilder       = "Program"
	StaticLibraryBuilder = "StaticLibrary"
	SharedLibraryBuilder = "SharedLibrary"
)

var defaultVars = map[string]Var{
	"CC":            "gcc",
	"CXX":           "g++",
	"AR":            "ar",
	"ARFLAGS":       "rc",
	"CCFLAGS":       "",
	"CXXFLAGS":      "",
	"SHCCFLAGS":     "$CCFLAGS -fPIC",
	"SHCXXFLAGS":    "$CXXFLAGS -fPIC",
	"LINKFLAGS":     "",
	"SHLINKFLAGS":   "$LINKFLAGS -shared",
	"CPPDEFINES":    "",
	"CPPPATH":       "",
	"LIBS":          "",
	"LIBPATH":       "",
	"INCPREFIX":     "-I",
	"INCSUFFIX":     "",
	"CPPDEFPREFIX":  "-D",
	"LIBDIRPREFIX":  "-L",
	"LIBLINKPREFIX": "-l",
	"CXXFILESUFFIX": ".cc",
	"OBJSUFFIX":     ".o",
	"SHOBJSUFFIX":   ".os",
	"PROGPREFIX":    "",
	"PROGSUFFIX":    "",
	"LIBPREFIX":     "lib",
	"LIBSUFFIX":     ".a",
	"SHLIBPREFIX":   "lib",
	"SHLIBSUFFIX":   ".so",

	"CCCOM":     "$CC -o $TARGET -c $CCFLAGS $_CPPDEFFLAGS $_CPPINCFLAGS $SOURCE",
	"SHCCCOM":   "$CC -o $TARGET -c $SHCCFLAGS $_CPPDEFFLAGS $_CPPINCFLAGS $SOURCE",
	"CXXCOM":    "$CXX -o $TARGET -c $CXXFLAGS $CCFLAGS $_CPPDEFFLAGS $_CPPINCFLAGS $SOURCE",
	"SHCXXCOM":  "$CXX -o $TARGET -c $SHCXXFLAGS $CCFLAGS $_CPPDEFFLAGS $_CPPINCFLAGS $SOURCE",
	"LINKCOM":   "$CXX -o $TARGET $LINKFLAGS $SOURCES $_LIBDIRFLAGS $_LIBFLAGS",
	"ARCOM":     "$AR $ARFLAGS $TARGET $SOURCES",
	"SHLINKCOM": "$CXX -o $TARGET $SHLINKFLAGS $SOURCES $_LIBDIRFLAGS $_LIBFLAGS",
}

// GenerateDefault sets up C and C++ compilation and linking.
func GenerateDefault(tc *ToolContext) error {
	env := tc.Env
	for name, v := range defaultVars {
		env.SetDefault(name, v)
	}
	env.SetFunc("_CPPDEFFLAGS", func(e *Env) string {
		return affixAll(e.String("CPPDEFPREFIX"), e.List("CPPDEFINES"), "")
	})
	env.SetFunc("_CPPINCFLAGS", func(e *Env) string {
		return affixAll(e.String("INCPREFIX"), e.List("CPPPATH"), e.String("INCSUFFIX"))
	})
	env.SetFunc("_LIBDIRFLAGS", func(e *Env) string {
		return affixAll(e.String("LIBDIRPREFIX"), e.List("LIBPATH"), "")
	})
	env.SetFunc("_LIBFLAGS", func(e *Env) string {
		return affixAll(e.String("LIBLINKPREFIX"), e.List("LIBS"), "")
	})

	static := NewBuilder(StaticObjectBuilder).WithScanner(ScanIncludes)
	shared := NewBuilder(SharedObjectBuilder).WithScanner(ScanIncludes)
	for _, ext := range cxxSuffixes {
		com, shcom := "$CXXCOM", "$SHCXXCOM"
		if ext == ".c" {
			com, shcom = "$CCCOM", "$SHCCCOM"
		}
		static.AddAction(ext, Action{Command: com, Suffix: "$OBJSUFFIX"})
		shared.AddAction(ext, Action{Command: shcom, Suffix: "$SHOBJSUFFIX"})
	}

	reg := tc.Registry
	reg.AddBuilder(static)
	reg.AddBuilder(shared)
	reg.AddBuilder(NewBuilder(ProgramBuilder).AddAction("", Action{Command: "$LINKCOM"}))
	reg.AddBuilder(NewBuilder(StaticLibraryBuilder).AddAction("", Action{Command: "$ARCOM"}))
	reg.AddBuilder(NewBuilder(SharedLibraryBuilder).AddAction("", Action{Command: "$SHLINKCOM"}))
	return nil
}

type TargetKind int

const (
	Program TargetKind = iota
	StaticLibrary
	SharedLibrary
)

func (k TargetKind) String() string {
	return k.builder()
}

func (k TargetKind) builder() string {
	switch k {
	case StaticLibrary:
		return StaticLibraryBuilder
	case SharedLibrary:
		return SharedLibraryBuilder
	default:
		return ProgramBuilder
	}
}

func (k TargetKind) objectBuilder() string {
	if k == SharedLibrary {
		return SharedObjectBuilder
	}
	return StaticObjectBuilder
}

func (k TargetKind) output(env *Env, name string) string {
	var prefix, suffix string
	switch k {
	case StaticLibrary:
		prefix, suffix = env.String("LIBPREFIX"), env.String("LIBSUFFIX")
	case SharedLibrary:
		prefix, suffix = env.String("SHLIBPREFIX"), env.String("SHLIBSUFFIX")
	default:
		prefix, suffix = env.String("PROGPREFIX"), env.String("PROGSUFFIX")
	}
	dir, base := filepath.Split(name)
	return filepath.Join(dir, prefix+base+suffix)
}

var objectSuffixes = []string{".o", ".os", ".obj", ".a", ".so", ".lib"}

// PlanLinkTarget registers the steps for one program or library: objects for
// its sources, whatever the target kind's emitters add, and the link step.
func PlanLinkTarget(env *Env, reg *Registry, kind TargetKind, lt LinkTarget) (*Node, error) {
	if lt.Name == "" {
		return nil, newError(ErrCodeInvalidConfig, "%s without a name", kind)
	}
	paths, err := ExpandSources(lt.Sources)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, newError(ErrCodeInvalidConfig, "%s %s has no sources", kind, lt.Name)
	}

	var objs []*Node
	for _, path := range paths {
		src := NewNode(path)
		ext := src.Ext()
		switch {
		case ext == ".ui":
			if _, err := reg.Build("Uic4", src, ""); err != nil {
				return nil, err
			}
		case ext == ".qrc":
			cxx, err := reg.Build("Qrc", src, "")
			if err != nil {
				return nil, err
			}
			o, err := reg.Build(kind.objectBuilder(), cxx[0], "")
			if err != nil {
				return nil, err
			}
			objs = append(objs, o...)
		case slices.Contains(objectSuffixes, ext):
			objs = append(objs, src)
		default:
			o, err := reg.Build(kind.objectBuilder(), src, "")
			if err != nil {
				return nil, err
			}
			objs = append(objs, o...)
		}
	}

	target := NewNode(kind.output(env, lt.Name))
	for _, em := range reg.Emitters(kind.builder()) {
		if objs, err = em(env, target, objs); err != nil {
			return nil, err
		}
	}
	out, err := reg.BuildAll(kind.builder(), objs, target.Path)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// PlanTranslation registers lupdate for the .ts file and lrelease for its .qm.
func PlanTranslation(reg *Registry, tr Translation) ([]*Node, error) {
	paths, err := ExpandSources(tr.Sources)
	if err != nil {
		return nil, err
	}
	if tr.Ts == "" || len(paths) == 0 {
		return nil, newError(ErrCodeInvalidConfig, "translation needs a ts file and sources")
	}
	srcs := make([]*Node, len(paths))
	for i, p := range paths {
		srcs[i] = NewNode(p)
	}
	ts, err := reg.BuildAll("Ts", srcs, tr.Ts)
	if err != nil {
		return nil, err
	}
	qm, err := reg.Build("Qm", ts[0], "")
	if err != nil {
		return nil, err
	}
	return append(ts, qm...), nil
}

// ExpandSources resolves glob entries. Plain names are kept even when the file
// does not exist yet, since it may be generated.
func ExpandSources(entries []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, entry := range entries {
		if !strings.ContainsAny(entry, "*?[{") {
			add(entry)
			continue
		}
		matches, err := doublestar.Glob(entry)
		if err != nil {
			return nil, wrapError(err, ErrCodeInvalidConfig, "bad source pattern %q", entry)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}
