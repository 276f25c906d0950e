package main

import (
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Error codes
const (
	ErrCodeTargetNotFound      goerrors.ErrorCode = "TARGET_NOT_FOUND"
	ErrCodeConfigNotFound      goerrors.ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeTargetError         goerrors.ErrorCode = "TARGET_ERROR"
	ErrCodeInvalidConfig       goerrors.ErrorCode = "INVALID_CONFIG"
	ErrCodeUnknownTool         goerrors.ErrorCode = "UNKNOWN_TOOL"
	ErrCodeUnknownBuilder      goerrors.ErrorCode = "UNKNOWN_BUILDER"
	ErrCodeTargetConflict      goerrors.ErrorCode = "TARGET_CONFLICT"
	ErrCodeDependencyCycle     goerrors.ErrorCode = "DEPENDENCY_CYCLE"
	ErrCodeContentUnavailable  goerrors.ErrorCode = "CONTENT_UNAVAILABLE"
	ErrCodeQtDirNotFound       goerrors.ErrorCode = "QTDIR_NOT_FOUND"
	ErrCodeToolNotFound        goerrors.ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeInvalidModule       goerrors.ErrorCode = "INVALID_MODULE"
	ErrCodePkgConfig           goerrors.ErrorCode = "PKG_CONFIG_FAILED"
	ErrCodeResourceUnparseable goerrors.ErrorCode = "RESOURCE_UNPARSEABLE"
)

// Process exit status per error code. Anything else exits with 1.
var exitCodes = map[goerrors.ErrorCode]int{
	ErrCodeTargetNotFound: 1,
	ErrCodeConfigNotFound: 2,
	ErrCodeTargetError:    3,
	ErrCodeInvalidConfig:  4,
	ErrCodeUnknownTool:    4,
	ErrCodeQtDirNotFound:  5,
	ErrCodeToolNotFound:   5,
	ErrCodeInvalidModule:  6,
}

func newError(code goerrors.ErrorCode, format string, args ...any) error {
	return goerrors.New(code, fmt.Sprintf(format, args...))
}

func wrapError(err error, code goerrors.ErrorCode, format string, args ...any) error {
	return goerrors.Wrap(err, code, fmt.Sprintf(format, args...))
}

func exitCode(err error) int {
	for code, status := range exitCodes {
		if goerrors.HasCode(err, code) {
			return status
		}
	}
	return 1
}

func SkipError(local bool, cfg *Config) bool {
	return local || (cfg != nil && cfg.ContinueOnError)
}
