package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var cxxSuffixes = []string{".c", ".cxx", ".cpp", ".cc"}

// headerExtensions in lookup order. ".H" only differs from ".h" where file
// names are case sensitive.
func headerExtensions() []string {
	exts := []string{".h", ".hxx", ".hpp", ".hh"}
	if caseSensitiveSuffixes() {
		exts = append(exts, ".H")
	}
	return exts
}

func caseSensitiveSuffixes() bool {
	return runtime.GOOS != "windows" && runtime.GOOS != "darwin"
}

var qt4Commands = []struct {
	Var  string
	Name string
}{
	{"QT4_MOC", "moc"},
	{"QT4_UIC", "uic"},
	{"QT4_RCC", "rcc"},
	{"QT4_LUPDATE", "lupdate"},
	{"QT4_LRELEASE", "lrelease"},
}

var qt4Defaults = map[string]Var{
	"QT4_BINPATH": "$QTDIR/bin",

	// should the qt4 tool try to figure out which sources are to be moc'ed
	"QT4_AUTOSCAN": "1",
	// 0: Q_OBJECT driven, 1: include driven (qtsolutions style)
	"QT4_AUTOSCAN_STRATEGY": "0",
	// remove comments before scanning for Q_OBJECT
	"QT4_GOBBLECOMMENTS": "0",
	"QT4_DEBUG":          "0",

	"QT4_UICFLAGS":        "",
	"QT4_MOCFROMHFLAGS":   "",
	"QT4_MOCFROMCXXFLAGS": "-i",
	"QT4_QRCFLAGS":        "",

	"QT4_UISUFFIX":      ".ui",
	"QT4_UICDECLPREFIX": "ui_",
	"QT4_UICDECLSUFFIX": ".h",
	"QT4_MOCINCPREFIX":  "-I",
	"QT4_MOCHPREFIX":    "moc_",
	"QT4_MOCHSUFFIX":    "$CXXFILESUFFIX",
	"QT4_MOCCXXPREFIX":  "",
	"QT4_MOCCXXSUFFIX":  ".moc",
	"QT4_QRCSUFFIX":     ".qrc",
	"QT4_QRCCXXSUFFIX":  "$CXXFILESUFFIX",
	"QT4_QRCCXXPREFIX":  "qrc_",
	"QT4_MOCDEFPREFIX":  "-D",
	"QT4_MOCDEFSUFFIX":  "",
	"QT4_MOCCPPPATH":    "",
	"QT4_TSSUFFIX":      ".ts",
	"QT4_QMSUFFIX":      ".qm",

	"QT4_UICCOM":        "$QT4_UIC $QT4_UICFLAGS -o $TARGET $SOURCE",
	"QT4_MOCFROMHCOM":   "$QT4_MOC $QT4_MOCDEFINES $QT4_MOCFROMHFLAGS $QT4_MOCINCFLAGS -o $TARGET $SOURCE",
	"QT4_MOCFROMCXXCOM": "$QT4_MOC $QT4_MOCDEFINES $QT4_MOCFROMCXXFLAGS $QT4_MOCINCFLAGS -o $TARGET $SOURCE",
	"QT4_LUPDATECOM":    "$QT4_LUPDATE $SOURCES -ts $TARGET",
	"QT4_LRELEASECOM":   "$QT4_LRELEASE $SOURCE -qm $TARGET",
	"QT4_RCCCOM":        "$QT4_RCC $QT4_QRCFLAGS $SOURCE -o $TARGET",

	// include driven automoc (qtsolutions)
	"QT4_XMOCHPREFIX":    "moc_",
	"QT4_XMOCHSUFFIX":    ".cpp",
	"QT4_XMOCCXXPREFIX":  "",
	"QT4_XMOCCXXSUFFIX":  ".moc",
	"QT4_XMOCFROMHCOM":   "$QT4_MOC $QT4_MOCFROMHFLAGS $QT4_MOCINCFLAGS -o $TARGET $SOURCE",
	"QT4_XMOCFROMCXXCOM": "$QT4_MOC $QT4_MOCFROMCXXFLAGS $QT4_MOCINCFLAGS -o $TARGET $SOURCE",
}

// DetectQtDir finds the Qt installation: QTDIR as a variable or in the
// process environment, else two levels above a moc found on PATH.
func DetectQtDir(env *Env) (string, error) {
	if dir, ok := env.Lookup("QTDIR"); ok && dir != "" {
		return env.Subst(dir, SubstContext{}), nil
	}
	for _, name := range []string{"moc-qt4", "moc4", "moc"} {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		dir := filepath.Dir(filepath.Dir(path))
		if env.logger != nil {
			env.logger.Warn().Str("QTDIR", dir).
				Msgf("QTDIR variable is not defined, using moc executable as a hint (QTDIR=%s)", dir)
		}
		return dir, nil
	}
	return "", newError(ErrCodeQtDirNotFound, "could not detect Qt 4 installation")
}

// LocateCommand finds a Qt program under qtdir/bin, trying the "-qt4" and "4"
// variants first, then on PATH.
func LocateCommand(qtdir, command string) (string, error) {
	suffixes := []string{"-qt4", "-qt4.exe", "4", "4.exe", "", ".exe"}
	var tried []string
	for _, suffix := range suffixes {
		full := filepath.Join(qtdir, "bin", command+suffix)
		if isExecutable(full) {
			return full, nil
		}
		tried = append(tried, full)
	}
	for _, name := range []string{command + "-qt4", command + "4", command} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", newError(ErrCodeToolNotFound, "Qt4 command '%s' not found. Tried: %s", command, strings.Join(tried, ", "))
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// GenerateQt4 adds the Qt 4 variables and builders, and installs automoc on
// programs and libraries. It fails when Qt or one of its programs cannot be
// found, before any planning happens.
func GenerateQt4(tc *ToolContext) error {
	env := tc.Env

	qtdir, err := DetectQtDir(env)
	if err != nil {
		return err
	}
	env.Set("QTDIR", Var(qtdir))

	for _, c := range qt4Commands {
		if _, ok := env.Lookup(c.Var); ok {
			continue
		}
		path, err := LocateCommand(qtdir, c.Name)
		if err != nil {
			return err
		}
		env.Set(c.Var, Var(path))
	}

	for name, v := range qt4Defaults {
		env.SetDefault(name, v)
	}
	env.SetFunc("QT4_MOCDEFINES", func(e *Env) string {
		return affixAll(e.String("QT4_MOCDEFPREFIX"), e.List("CPPDEFINES"), e.String("QT4_MOCDEFSUFFIX"))
	})
	env.SetFunc("QT4_MOCINCFLAGS", func(e *Env) string {
		return affixAll(e.String("QT4_MOCINCPREFIX"), e.List("QT4_MOCCPPPATH"), e.String("INCSUFFIX"))
	})

	reg := tc.Registry
	lint := MocIncludeCheck(env, tc.Contents, tc.Logger)

	moc := NewBuilder("Moc4").WithScanner(ScanIncludes)
	xmoc := NewBuilder("XMoc4").WithScanner(ScanIncludes)
	for _, h := range headerExtensions() {
		moc.AddAction(h, Action{Command: "$QT4_MOCFROMHCOM", Prefix: "$QT4_MOCHPREFIX", Suffix: "$QT4_MOCHSUFFIX"})
		xmoc.AddAction(h, Action{Command: "$QT4_XMOCFROMHCOM", Prefix: "$QT4_XMOCHPREFIX", Suffix: "$QT4_XMOCHSUFFIX"})
	}
	for _, cxx := range cxxSuffixes {
		moc.AddAction(cxx, Action{Command: "$QT4_MOCFROMCXXCOM", Prefix: "$QT4_MOCCXXPREFIX", Suffix: "$QT4_MOCCXXSUFFIX", Checks: []StepCheck{lint}})
		xmoc.AddAction(cxx, Action{Command: "$QT4_XMOCFROMCXXCOM", Prefix: "$QT4_XMOCCXXPREFIX", Suffix: "$QT4_XMOCCXXSUFFIX"})
	}
	reg.AddBuilder(moc)
	reg.AddBuilder(xmoc)

	reg.AddBuilder(NewBuilder("Uic4").AddAction(".ui",
		Action{Command: "$QT4_UICCOM", Prefix: "$QT4_UICDECLPREFIX", Suffix: "$QT4_UICDECLSUFFIX"}))
	reg.AddBuilder(NewBuilder("Qrc").WithScanner(ScanResources).AddAction(".qrc",
		Action{Command: "$QT4_RCCCOM", Prefix: "$QT4_QRCCXXPREFIX", Suffix: "$QT4_QRCCXXSUFFIX"}))
	reg.AddBuilder(NewBuilder("Ts").AddAction("",
		Action{Command: "$QT4_LUPDATECOM", Suffix: "$QT4_TSSUFFIX"}))
	reg.AddBuilder(NewBuilder("Qm").AddAction(".ts",
		Action{Command: "$QT4_LRELEASECOM", Suffix: "$QT4_QMSUFFIX"}))

	for _, link := range []struct {
		builder string
		object  string
	}{
		{ProgramBuilder, StaticObjectBuilder},
		{StaticLibraryBuilder, StaticObjectBuilder},
		{SharedLibraryBuilder, SharedObjectBuilder},
	} {
		planner := &Planner{
			Registrar:     reg,
			Contents:      tc.Contents,
			Logger:        tc.Logger,
			ObjectBuilder: link.object,
			MocBuilder:    "Moc4",
			XMocBuilder:   "XMoc4",
		}
		reg.AddEmitter(link.builder, planner.Emit)
	}
	return nil
}

func affixAll(prefix string, values []string, suffix string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + v + suffix
	}
	return strings.Join(out, " ")
}
