package main

import (
	"regexp"
	"slices"
	"strings"
)

const maxSubstDepth = 16

// $var or ${var} or $@
var varPattern = regexp.MustCompile(`\$\w+|\$\{[^}]+\}|\$@`)

// $( and $) only delimit text that does not affect a command's signature.
var signatureMarkers = strings.NewReplacer("$(", "", "$)", "")

// Subst expands variables in text. Values that contain variables are expanded
// again, up to maxSubstDepth rounds. Undefined variables are left in place.
func (e *Env) Subst(text string, sc SubstContext) string {
	text = signatureMarkers.Replace(text)

	var undefined []string
	for depth := 0; depth < maxSubstDepth && strings.Contains(text, "$"); depth++ {
		changed := false
		text = varPattern.ReplaceAllStringFunc(text, func(m string) string {
			name := strings.Trim(strings.TrimPrefix(m, "$"), "{}")
			val, ok := e.GetVar(name, sc)
			if !ok {
				if !slices.Contains(undefined, m) {
					undefined = append(undefined, m)
				}
				return m
			}
			changed = true
			return signatureMarkers.Replace(val)
		})
		if !changed {
			break
		}
	}

	if e.logger != nil {
		for _, m := range undefined {
			e.logger.Warn().Str("variable", m).Str("target", sc.Name).Msg("undefined variable")
		}
	}
	return text
}
