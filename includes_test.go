package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanIncludes(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     []string
	}{
		{"Quoted and angled", "#include \"a.h\"\n#include <QWidget>\n", []string{"a.h", "QWidget"}},
		{"Spacing", "  #  include   \"sub/b.h\"\n#include<c.h>\n", []string{"sub/b.h", "c.h"}},
		{"Moc output", "int x;\n#include \"moc_x.cpp\"\n", []string{"moc_x.cpp"}},
		{"Not at line start", "int a; #include \"no.h\"\n", nil},
		{"Nothing", "int main() {}\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanIncludes(nil, tt.contents)
			if err != nil {
				t.Fatalf("ScanIncludes() unexpected error: %v", err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMocIncludeCheck(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		cpppath  Var
		wantWarn bool
	}{
		{"Included next to source", "#include \"src/view.moc\"", "", true},
		{"Included by base name", "class V { Q_OBJECT };\n#include \"view.moc\"\n", "", false},
		{"Included through CPPPATH", "#include \"src/view.moc\"", ".", false},
		{"Not included", "class V { Q_OBJECT };\n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			logger := newLogger("warn", &buf)
			env := NewEnv(map[string]Var{"CPPPATH": tt.cpppath}, logger)
			contents := memContents{"src/view.cpp": tt.source}

			step := &Step{
				Builder: "Moc4",
				Sources: []*Node{NewNode("src/view.cpp")},
				Targets: []*Node{NewNode("src/view.moc")},
			}
			if err := MocIncludeCheck(env, contents, logger)(step); err != nil {
				t.Fatalf("check returned %v, lint must not fail the build", err)
			}

			warned := strings.Contains(buf.String(), "is not included by")
			if warned != tt.wantWarn {
				t.Errorf("warned = %v, want %v (log: %q)", warned, tt.wantWarn, buf.String())
			}
		})
	}
}
