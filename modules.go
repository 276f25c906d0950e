package main

import (
	"os/exec"
	"runtime"
	"slices"
	"strings"
)

var validQt4Modules = []string{
	"QtCore",
	"QtGui",
	"QtOpenGL",
	"Qt3Support",
	"QtAssistant", // deprecated
	"QtAssistantClient",
	"QtScript",
	"QtDBus",
	"QtSql",
	"QtSvg",
	// not tested on platforms other than Linux
	"QtNetwork",
	"QtTest",
	"QtXml",
	"QtXmlPatterns",
	"QtUiTools",
	"QtDesigner",
	"QtDesignerComponents",
	"QtWebKit",
	"QtHelp",
	"QtScriptTools",
	"QtMultimedia",
}

// Modules linked without a pkg-config file. Empty since Qt 4.4.
var pclessQt4Modules = []string{}

var staticQt4Modules = []string{"QtUiTools"}

var qt4ModuleDefines = map[string][]string{
	"QtScript":   {"QT_SCRIPT_LIB"},
	"QtSvg":      {"QT_SVG_LIB"},
	"Qt3Support": {"QT_QT3SUPPORT_LIB", "QT3_SUPPORT"},
	"QtSql":      {"QT_SQL_LIB"},
	"QtXml":      {"QT_XML_LIB"},
	"QtOpenGL":   {"QT_OPENGL_LIB"},
	"QtGui":      {"QT_GUI_LIB"},
	"QtNetwork":  {"QT_NETWORK_LIB"},
	"QtCore":     {"QT_CORE_LIB"},
}

// CommandRunner runs a program and returns its standard output.
type CommandRunner func(name string, args ...string) (string, error)

func runCommand(name string, args ...string) (string, error) {
	// #nosec G204 - pkg-config and winepath with module names checked against validQt4Modules
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}

type ModuleOptions struct {
	Debug          bool
	CrossCompiling bool
	// Platform defaults to runtime.GOOS.
	Platform string
	// Run defaults to executing the program.
	Run CommandRunner
}

// EnableModules adds compiler and linker settings for Qt modules. An unknown
// module name is an error listing all valid names; nothing is changed then.
func EnableModules(env *Env, modules []string, opts ModuleOptions) error {
	var invalid []string
	for _, m := range modules {
		if !slices.Contains(validQt4Modules, m) {
			invalid = append(invalid, m)
		}
	}
	if len(invalid) > 0 {
		return newError(ErrCodeInvalidModule, "Modules %v are not Qt4 modules. Valid Qt4 modules are: %v", invalid, validQt4Modules)
	}

	if opts.Platform == "" {
		opts.Platform = runtime.GOOS
	}
	if opts.Run == nil {
		opts.Run = runCommand
	}
	modules = slices.Clone(modules)

	for _, m := range modules {
		env.AppendUnique("CPPDEFINES", qt4ModuleDefines[m]...)
	}

	switch {
	case (opts.Platform == "linux" || opts.Platform == "darwin") && !opts.CrossCompiling:
		return enablePkgConfigModules(env, modules, opts)
	case opts.Platform == "windows" || opts.CrossCompiling:
		return enableWindowsModules(env, modules, opts)
	}
	return nil
}

func enablePkgConfigModules(env *Env, modules []string, opts ModuleOptions) error {
	debugSuffix := ""
	if opts.Debug {
		debugSuffix = "_debug"
	}
	for _, m := range modules {
		if !slices.Contains(pclessQt4Modules, m) {
			continue
		}
		env.AppendUnique("LIBS", m+debugSuffix)
		env.AppendUnique("LIBPATH", "$QTDIR/lib")
		env.AppendUnique("CPPPATH", "$QTDIR/include/qt4")
		env.AppendUnique("CPPPATH", "$QTDIR/include/qt4/"+m)
	}

	var pcmodules []string
	for _, m := range modules {
		if !slices.Contains(pclessQt4Modules, m) {
			pcmodules = append(pcmodules, m+debugSuffix)
		}
	}
	if slices.Contains(pcmodules, "QtDBus") {
		env.AppendUnique("CPPPATH", "$QTDIR/include/qt4/QtDBus")
	}
	if i := slices.Index(pcmodules, "QtAssistant"); i >= 0 {
		env.AppendUnique("CPPPATH", "$QTDIR/include/qt4/QtAssistant")
		pcmodules = append(slices.Delete(pcmodules, i, i+1), "QtAssistantClient")
	}

	if len(pcmodules) > 0 {
		args := append(slices.Clone(pcmodules), "--libs", "--cflags")
		out, err := opts.Run("pkg-config", args...)
		if err != nil {
			return wrapError(err, ErrCodePkgConfig, "pkg-config %s", strings.Join(args, " "))
		}
		MergeFlags(env, out)
	}
	env.Set("QT4_MOCCPPPATH", Var(strings.Join(env.rawList("CPPPATH"), " ")))
	return nil
}

func enableWindowsModules(env *Env, modules []string, opts ModuleOptions) error {
	var winQtDir string
	if opts.CrossCompiling {
		out, err := opts.Run("winepath", "-w", env.String("QTDIR"))
		if err != nil {
			return wrapError(err, ErrCodeToolNotFound, "winepath %s", env.String("QTDIR"))
		}
		winQtDir = strings.ReplaceAll(strings.TrimSpace(out), `\`, "/")
		if moc, ok := env.Lookup("QT4_MOC"); ok {
			env.Set("QT4_MOC", Var("QTDIR="+winQtDir+" "+moc))
		}
	}
	env.AppendUnique("CPPPATH", "$QTDIR/include")

	modules = slices.DeleteFunc(modules, func(m string) bool { return m == "QtDBus" })
	debugSuffix := ""
	if opts.Debug {
		debugSuffix = "d"
	}
	if i := slices.Index(modules, "QtAssistant"); i >= 0 {
		env.AppendUnique("CPPPATH", "$QTDIR/include/QtAssistant")
		modules = append(slices.Delete(modules, i, i+1), "QtAssistantClient")
	}

	var libs, staticLibs []string
	for _, m := range modules {
		if slices.Contains(staticQt4Modules, m) {
			staticLibs = append(staticLibs, m+debugSuffix)
		} else {
			libs = append(libs, m+"4"+debugSuffix)
		}
	}
	env.AppendUnique("LIBS", libs...)
	env.PrependUnique("LIBS", staticLibs...)
	if slices.Contains(modules, "QtOpenGL") {
		env.AppendUnique("LIBS", "opengl32")
	}
	env.AppendUnique("CPPPATH", "$QTDIR/include/")
	for _, m := range modules {
		env.AppendUnique("CPPPATH", "$QTDIR/include/"+m)
	}

	cpppath := env.rawList("CPPPATH")
	if opts.CrossCompiling {
		for i, p := range cpppath {
			cpppath[i] = strings.ReplaceAll(p, "$QTDIR", winQtDir)
		}
	}
	env.Set("QT4_MOCCPPPATH", Var(strings.Join(cpppath, " ")))
	env.AppendUnique("LIBPATH", "$QTDIR/lib")
	return nil
}

// MergeFlags sorts compiler and linker flags, as printed by pkg-config, into
// include and library paths, libraries, defines, and compiler or linker flags.
func MergeFlags(env *Env, flags string) {
	for _, f := range strings.Fields(flags) {
		switch {
		case strings.HasPrefix(f, "-I") && len(f) > 2:
			env.AppendUnique("CPPPATH", f[2:])
		case strings.HasPrefix(f, "-L") && len(f) > 2:
			env.AppendUnique("LIBPATH", f[2:])
		case strings.HasPrefix(f, "-l") && len(f) > 2:
			env.AppendUnique("LIBS", f[2:])
		case strings.HasPrefix(f, "-D") && len(f) > 2:
			env.AppendUnique("CPPDEFINES", f[2:])
		case f == "-pthread":
			env.AppendUnique("CCFLAGS", f)
			env.AppendUnique("LINKFLAGS", f)
		case strings.HasPrefix(f, "-Wl,"), f == "-rdynamic":
			env.AppendUnique("LINKFLAGS", f)
		default:
			env.AppendUnique("CCFLAGS", f)
		}
	}
}
