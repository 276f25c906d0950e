//go:build go1.18
// +build go1.18

package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// ===== FUZZ TESTS FOR USER-CONTROLLED INPUT =====

// FuzzSubst expands random command templates. Subst must terminate and never
// panic, whatever the configuration contains.
func FuzzSubst(f *testing.F) {
	f.Add("$CC -o $OUTPUT", "build")
	f.Add("${VAR} test ${ANOTHER}", "target")
	f.Add("$@", "mytarget")
	f.Add("", "empty")
	f.Add("$", "dollar")
	f.Add("$$", "doubledollar")
	f.Add("$cwd", "builtin")
	f.Add("$NONEXISTENT", "missing")
	f.Add("${}", "emptybrace")
	f.Add("${UNCLOSED", "malformed")
	f.Add("$( $LOOP $)", "signature")
	f.Add(strings.Repeat("$VAR", 100), "repeated")

	env := NewEnv(map[string]Var{
		"CC":      "gcc",
		"OUTPUT":  "app.exe",
		"VAR":     "value",
		"ANOTHER": "$VAR-$VAR",
		"LOOP":    "$LOOP",
	}, nil)

	f.Fuzz(func(t *testing.T, text string, target string) {
		if !utf8.ValidString(text) || !utf8.ValidString(target) {
			t.Skip("Invalid UTF-8 input")
		}
		if len(text) > 10000 || len(target) > 1000 {
			t.Skip("Input too long")
		}

		result := env.Subst(text, SubstContext{Name: target, Targets: []string{target}})

		if !strings.Contains(text, "$") && result != text {
			t.Errorf("Subst(%q) = %q, text without variables must not change", text, result)
		}
	})
}

// FuzzMarkerScan runs comment stripping and marker detection on arbitrary
// source text.
func FuzzMarkerScan(f *testing.F) {
	f.Add("class A { Q_OBJECT };")
	f.Add("/* Q_OBJECT */")
	f.Add("// Q_OBJECT\nint x;")
	f.Add("/* unterminated Q_OBJECT")
	f.Add("Q_OBJECTQ_OBJECT")
	f.Add("\"// not a comment\" Q_OBJECT")

	f.Fuzz(func(t *testing.T, text string) {
		if len(text) > 10000 {
			t.Skip("Input too long")
		}

		stripped := StripComments(text)
		if len(stripped) > len(text) {
			t.Errorf("StripComments() grew the text from %d to %d bytes", len(text), len(stripped))
		}
		if !strings.Contains(text, "/") && stripped != text {
			t.Errorf("StripComments(%q) = %q, text without comments must not change", text, stripped)
		}
		if !strings.Contains(stripped, "Q_OBJECT") && HasMarker(stripped) {
			t.Errorf("HasMarker() matched text that lacks Q_OBJECT: %q", stripped)
		}
	})
}

// FuzzScanIncludes runs the include scanner on arbitrary text.
func FuzzScanIncludes(f *testing.F) {
	f.Add("#include \"a.h\"\n#include <b>\n")
	f.Add("# include\"moc_x.cpp\"")
	f.Add("#include \"unterminated\n")
	f.Add("#include <>\n")

	f.Fuzz(func(t *testing.T, text string) {
		names, err := ScanIncludes(nil, text)
		if err != nil {
			t.Fatalf("ScanIncludes() unexpected error: %v", err)
		}
		for _, name := range names {
			if name == "" || strings.ContainsAny(name, "\">") {
				t.Errorf("ScanIncludes(%q) returned malformed name %q", text, name)
			}
		}
	})
}

// FuzzScanResources feeds arbitrary text to the .qrc scanner, which must
// never panic on malformed markup.
func FuzzScanResources(f *testing.F) {
	f.Add(sampleQrc)
	f.Add("<RCC><qresource><file>a.png</file>")
	f.Add("<file></file><file>  </file>")
	f.Add("not xml at all")

	qrc := NewNode("fuzz/app.qrc")
	f.Fuzz(func(t *testing.T, text string) {
		if len(text) > 10000 || strings.Contains(text, "..") {
			t.Skip("Input too long or escapes the collection directory")
		}
		files, err := ScanResources(qrc, text)
		if err != nil {
			return
		}
		for _, file := range files {
			if strings.TrimSpace(file) == "" {
				t.Errorf("ScanResources(%q) returned an empty file name", text)
			}
		}
	})
}
