package main

import (
	"errors"
	"strings"
	"testing"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a CommandRunner that returns canned output.
type recorder struct {
	calls  []string
	output map[string]string
	err    error
}

func (r *recorder) run(name string, args ...string) (string, error) {
	r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if r.err != nil {
		return "", r.err
	}
	return r.output[name], nil
}

func TestEnableModulesRejectsUnknownNames(t *testing.T) {
	env := NewEnv(map[string]Var{"CPPDEFINES": "KEEP"}, nil)
	rec := &recorder{}

	err := EnableModules(env, []string{"QtCore", "QtQuick", "QtWidgets"}, ModuleOptions{Platform: "linux", Run: rec.run})
	require.Error(t, err)
	assert.True(t, goerrors.HasCode(err, ErrCodeInvalidModule))
	assert.Equal(t, 6, exitCode(err))
	assert.Contains(t, err.Error(), "[QtQuick QtWidgets]")
	for _, m := range validQt4Modules {
		assert.Contains(t, err.Error(), m)
	}

	assert.Equal(t, "KEEP", env.String("CPPDEFINES"), "nothing changes on error")
	assert.Empty(t, rec.calls)
}

func TestEnableModulesPkgConfig(t *testing.T) {
	env := NewEnv(map[string]Var{"QTDIR": "/usr"}, nil)
	rec := &recorder{output: map[string]string{
		"pkg-config": "-DQT_SHARED -I/usr/include/qt4 -I/usr/include/qt4/QtGui -pthread -L/usr/lib -lQtGui -lQtCore -Wl,-O1\n",
	}}

	err := EnableModules(env, []string{"QtCore", "QtGui"}, ModuleOptions{Platform: "linux", Run: rec.run})
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg-config QtCore QtGui --libs --cflags"}, rec.calls)
	assert.Equal(t, []string{"QT_CORE_LIB", "QT_GUI_LIB", "QT_SHARED"}, env.List("CPPDEFINES"))
	assert.Equal(t, []string{"/usr/include/qt4", "/usr/include/qt4/QtGui"}, env.List("CPPPATH"))
	assert.Equal(t, []string{"QtGui", "QtCore"}, env.List("LIBS"))
	assert.Equal(t, []string{"/usr/lib"}, env.List("LIBPATH"))
	assert.Equal(t, []string{"-pthread"}, env.List("CCFLAGS"))
	assert.Equal(t, []string{"-pthread", "-Wl,-O1"}, env.List("LINKFLAGS"))
	assert.Equal(t, "/usr/include/qt4 /usr/include/qt4/QtGui", env.String("QT4_MOCCPPPATH"))
}

func TestEnableModulesPkgConfigDebugAndAssistant(t *testing.T) {
	env := NewEnv(map[string]Var{"QTDIR": "/usr"}, nil)
	rec := &recorder{}

	err := EnableModules(env, []string{"QtAssistant", "QtDBus"}, ModuleOptions{Platform: "darwin", Run: rec.run})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg-config QtDBus QtAssistantClient --libs --cflags"}, rec.calls)
	assert.Equal(t, []string{"$QTDIR/include/qt4/QtDBus", "$QTDIR/include/qt4/QtAssistant"}, strings.Fields(string(env.vars["CPPPATH"])))

	rec = &recorder{}
	err = EnableModules(NewEnv(nil, nil), []string{"QtCore"}, ModuleOptions{Platform: "linux", Debug: true, Run: rec.run})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg-config QtCore_debug --libs --cflags"}, rec.calls)
}

func TestEnableModulesPkgConfigFailure(t *testing.T) {
	rec := &recorder{err: errors.New("exit status 1")}
	err := EnableModules(NewEnv(nil, nil), []string{"QtSql"}, ModuleOptions{Platform: "linux", Run: rec.run})
	require.Error(t, err)
	assert.True(t, goerrors.HasCode(err, ErrCodePkgConfig))
}

func TestEnableModulesWindows(t *testing.T) {
	env := NewEnv(map[string]Var{"QTDIR": "C:/Qt/4.8.7"}, nil)
	rec := &recorder{}

	err := EnableModules(env, []string{"QtCore", "QtOpenGL", "QtUiTools", "QtDBus"}, ModuleOptions{Platform: "windows", Debug: true, Run: rec.run})
	require.NoError(t, err)

	assert.Empty(t, rec.calls, "no pkg-config on windows")
	assert.Equal(t, []string{"QtUiToolsd", "QtCore4d", "QtOpenGL4d", "opengl32"}, env.List("LIBS"))
	assert.Equal(t, []string{"C:/Qt/4.8.7/lib"}, env.List("LIBPATH"))
	assert.Equal(t, []string{"QT_CORE_LIB", "QT_OPENGL_LIB"}, env.List("CPPDEFINES"))
	assert.NotContains(t, env.List("CPPPATH"), "C:/Qt/4.8.7/include/QtDBus")
	assert.Contains(t, env.List("CPPPATH"), "C:/Qt/4.8.7/include/QtOpenGL")
}

func TestEnableModulesCrossCompiling(t *testing.T) {
	env := NewEnv(map[string]Var{"QTDIR": "/home/me/.wine/drive_c/Qt", "QT4_MOC": "moc"}, nil)
	rec := &recorder{output: map[string]string{"winepath": "C:\\Qt\r\n"}}

	err := EnableModules(env, []string{"QtCore"}, ModuleOptions{Platform: "linux", CrossCompiling: true, Run: rec.run})
	require.NoError(t, err)

	assert.Equal(t, []string{"winepath -w /home/me/.wine/drive_c/Qt"}, rec.calls)
	assert.Equal(t, "QTDIR=C:/Qt moc", env.String("QT4_MOC"))
	assert.Equal(t, []string{"QtCore4"}, env.List("LIBS"))
	assert.Contains(t, env.String("QT4_MOCCPPPATH"), "C:/Qt/include/QtCore")
	assert.NotContains(t, env.String("QT4_MOCCPPPATH"), "$QTDIR")
}

func TestMergeFlags(t *testing.T) {
	env := NewEnv(nil, nil)
	MergeFlags(env, "-I/a -I/a -L/lib -lm -DX=1 -rdynamic -O2 -I")

	assert.Equal(t, []string{"/a"}, env.List("CPPPATH"))
	assert.Equal(t, []string{"/lib"}, env.List("LIBPATH"))
	assert.Equal(t, []string{"m"}, env.List("LIBS"))
	assert.Equal(t, []string{"X=1"}, env.List("CPPDEFINES"))
	assert.Equal(t, []string{"-rdynamic"}, env.List("LINKFLAGS"))
	assert.Equal(t, []string{"-O2", "-I"}, env.List("CCFLAGS"))
}

func TestListModules(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, listModules(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, len(validQt4Modules))
	assert.Contains(t, buf.String(), "QT_QT3SUPPORT_LIB QT3_SUPPORT")
}
