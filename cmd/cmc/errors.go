package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/ingest"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Enforcement threshold met, or doctor found the environment unhealthy
	ExitInvalidInput = 2 // Bad flags, unreadable input, invalid config or policy
	ExitRuntimeError = 3 // Cloud API, upstream or I/O failure
)

// ValidationError is a problem with what the user asked for rather than with
// the environment.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// PolicyFailedError is returned when findings meet a fail_on_severity
// threshold from the policy file.
type PolicyFailedError struct {
	Findings int
}

func (e *PolicyFailedError) Error() string {
	return fmt.Sprintf("policy enforcement failed: %d finding(s) at or above the configured severity", e.Findings)
}

// UnhealthyError is returned by doctor. The diagnostics were already printed,
// so main stays quiet about it.
type UnhealthyError struct{}

func (e *UnhealthyError) Error() string { return "environment is unhealthy" }

// exitCode determines the process exit code for an error returned by the
// root command.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		verr *ValidationError
		perr *PolicyFailedError
		uerr *UnhealthyError
	)
	switch {
	case errors.As(err, &perr), errors.As(err, &uerr):
		return ExitPolicyFail
	case errors.As(err, &verr),
		errors.Is(err, ingest.ErrEmptyInput),
		errors.Is(err, ingest.ErrTooLarge),
		errors.Is(err, fs.ErrNotExist):
		return ExitInvalidInput
	}
	return ExitRuntimeError
}

// reportError prints err for the user unless the command already did.
func reportError(w io.Writer, err error) {
	var uerr *UnhealthyError
	if err == nil || errors.As(err, &uerr) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
