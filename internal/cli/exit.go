package cli

import (
	"context"
	"errors"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// Exit statuses of the causalhub binary.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2 // bad flags, arguments or input files
	ExitUnsolvable  = 3 // the data or prior knowledge admit no answer
	ExitInterrupted = 130
)

// ExitCode maps an error returned by the root command to a process status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidPath,
		errs.ErrCodeFileNotFound, errs.ErrCodeUnknownVertex, errs.ErrCodeUnsupported:
		return ExitUsage
	case errs.ErrCodeConstraintConflict, errs.ErrCodeCycle,
		errs.ErrCodeDegenerateInput, errs.ErrCodeSingularMatrix:
		return ExitUnsolvable
	}
	return ExitFailure
}

// ReportError prints err for the user. Coded errors show their code.
func ReportError(err error) {
	if code := errs.GetCode(err); code != "" {
		printError("%s: %s", code, errs.UserMessage(err))
		return
	}
	printError("%v", err)
}
