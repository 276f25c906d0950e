package main

import (
	"testing"

	goerrors "github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultRegistry(t *testing.T, contents ContentProvider) *Registry {
	t.Helper()
	env := NewEnv(nil, nil)
	tc := &ToolContext{Env: env, Registry: NewRegistry(env, contents), Contents: contents}
	require.NoError(t, ApplyTools(tc, nil))
	return tc.Registry
}

// ===== REGISTRY TESTS =====

func TestRegistryBuildNaming(t *testing.T) {
	reg := newDefaultRegistry(t, memContents{})

	tests := []struct {
		name    string
		builder string
		source  string
		target  string
		want    string
	}{
		{"Object from cpp", StaticObjectBuilder, "src/main.cpp", "", "src/main.o"},
		{"Object from c", StaticObjectBuilder, "lib/util.c", "", "lib/util.o"},
		{"Shared object", SharedObjectBuilder, "lib/util.cc", "", "lib/util.os"},
		{"Explicit target", StaticObjectBuilder, "x.cxx", "build/x.o", "build/x.o"},
		{"Target is cleaned", StaticObjectBuilder, "y.cpp", "./out//y.o", "out/y.o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := reg.Build(tt.builder, NewNode(tt.source), tt.target)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Path)
			assert.Equal(t, tt.builder, out[0].Builder)
			assert.Equal(t, NewNode(tt.source).Path, out[0].Source().Path)
		})
	}
}

func TestRegistryBuildIsIdempotent(t *testing.T) {
	reg := newDefaultRegistry(t, memContents{})

	first, err := reg.Build(StaticObjectBuilder, NewNode("a.cpp"), "")
	require.NoError(t, err)
	second, err := reg.Build(StaticObjectBuilder, NewNode("a.cpp"), "")
	require.NoError(t, err)

	assert.Same(t, first[0], second[0])
	assert.Len(t, reg.Steps(), 1)
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(reg *Registry) error
		code  goerrors.ErrorCode
	}{
		{
			name: "Unknown builder",
			setup: func(reg *Registry) error {
				_, err := reg.Build("Fortran", NewNode("a.f90"), "")
				return err
			},
			code: ErrCodeUnknownBuilder,
		},
		{
			name: "No action for suffix",
			setup: func(reg *Registry) error {
				_, err := reg.Build(StaticObjectBuilder, NewNode("notes.txt"), "")
				return err
			},
			code: ErrCodeUnknownBuilder,
		},
		{
			name: "No sources",
			setup: func(reg *Registry) error {
				_, err := reg.BuildAll(ProgramBuilder, nil, "app")
				return err
			},
			code: ErrCodeInvalidConfig,
		},
		{
			name: "Same target from different sources",
			setup: func(reg *Registry) error {
				if _, err := reg.Build(StaticObjectBuilder, NewNode("a.cpp"), "out.o"); err != nil {
					return err
				}
				_, err := reg.Build(StaticObjectBuilder, NewNode("b.cpp"), "out.o")
				return err
			},
			code: ErrCodeTargetConflict,
		},
		{
			name: "Same target from different builders",
			setup: func(reg *Registry) error {
				if _, err := reg.Build(StaticObjectBuilder, NewNode("a.cpp"), "a.o"); err != nil {
					return err
				}
				_, err := reg.Build(SharedObjectBuilder, NewNode("a.cpp"), "a.o")
				return err
			},
			code: ErrCodeTargetConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup(newDefaultRegistry(t, memContents{}))
			require.Error(t, err)
			if !goerrors.HasCode(err, tt.code) {
				t.Errorf("error %v does not carry code %s", err, tt.code)
			}
		})
	}
}

func TestRegistryScansImplicitDependencies(t *testing.T) {
	contents := memContents{
		"src/main.cpp": "#include \"app.h\"\n#include <vector>\n#include \"../common/log.h\"\n",
	}
	reg := newDefaultRegistry(t, contents)

	out, err := reg.Build(StaticObjectBuilder, NewNode("src/main.cpp"), "")
	require.NoError(t, err)

	step, ok := reg.StepFor(out[0].Path)
	require.True(t, ok)
	assert.Equal(t, []string{"src/app.h", "src/vector", "common/log.h"}, step.Implicit)
	assert.Equal(t, []string{"src/main.cpp", "src/app.h", "src/vector", "common/log.h"}, step.Dependencies())
}

func TestRegistryIgnore(t *testing.T) {
	contents := memContents{"w.cpp": "#include \"w.moc\"\n#include \"w.h\"\n"}
	env := NewEnv(qtTestVars(), nil)
	tc := &ToolContext{Env: env, Registry: NewRegistry(env, contents), Contents: contents}
	require.NoError(t, ApplyTools(tc, []string{"qt4"}))

	out, err := tc.Registry.Build("Moc4", NewNode("w.cpp"), "")
	require.NoError(t, err)
	step, _ := tc.Registry.StepFor("w.moc")
	assert.Contains(t, step.Dependencies(), "w.moc")

	tc.Registry.Ignore(out[0])
	assert.Equal(t, []string{"w.cpp", "w.h"}, step.Dependencies())

	// unknown nodes are ignored silently
	tc.Registry.Ignore(NewNode("nothing.moc"))
}

func TestBuilderFallbackAction(t *testing.T) {
	b := NewBuilder("Copy").AddAction("", Action{Command: "cp $SOURCE $TARGET"}).
		AddAction(".txt", Action{Command: "cat $SOURCE > $TARGET"})

	act, ok := b.action(NewNode("a.txt"))
	assert.True(t, ok)
	assert.Equal(t, "cat $SOURCE > $TARGET", act.Command)

	act, ok = b.action(NewNode("a.bin"))
	assert.True(t, ok)
	assert.Equal(t, "cp $SOURCE $TARGET", act.Command)

	_, ok = NewBuilder("Empty").action(NewNode("a.bin"))
	assert.False(t, ok)
}
