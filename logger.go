package main

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// newLogger writes human readable lines to w; levels are the phuslu/log
// names (debug, info, warn, error).
func newLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.ParseLevel(level)
	if level == "" {
		lvl = log.InfoLevel
	}
	return &log.Logger{
		Level: lvl,
		Writer: &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    false,
			EndWithMessage: true,
		},
	}
}
