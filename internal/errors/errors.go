package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for the node tools
var (
	ErrExternalTool        = fmt.Errorf("EXTERNAL_TOOL")
	ErrMalformedDescriptor = fmt.Errorf("MALFORMED_DESCRIPTOR")
	ErrInvalidArguments    = fmt.Errorf("INVALID_ARGUMENTS")
	ErrRemoteCommunication = fmt.Errorf("REMOTE_COMMUNICATION")
	ErrTimedOut            = fmt.Errorf("TIMED_OUT")
	ErrGuestCommandFailed  = fmt.Errorf("GUEST_COMMAND_FAILED")
)

// Process exit statuses
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitTimeout = 124
)

// ExternalToolError wraps a failed shelled-out command
type ExternalToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrExternalTool, e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" exited with code %d", e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ExternalToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}

// MalformedDescriptorError reports a device descriptor missing an expected field
type MalformedDescriptorError struct {
	Index  int
	Field  string
	Reason string
}

func (e *MalformedDescriptorError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing"
	}
	return fmt.Sprintf("%s: descriptor %d field %q %s", ErrMalformedDescriptor, e.Index, e.Field, reason)
}

func (e *MalformedDescriptorError) Unwrap() error {
	return ErrMalformedDescriptor
}

// InvalidArgumentsError reports unusable command-line input
type InvalidArgumentsError struct {
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidArguments, e.Reason)
}

func (e *InvalidArgumentsError) Unwrap() error {
	return ErrInvalidArguments
}

// RemoteCommunicationError wraps a transport or decode failure talking to the guest agent
type RemoteCommunicationError struct {
	Domain  string
	Command string
	Err     error
}

func (e *RemoteCommunicationError) Error() string {
	return fmt.Sprintf("%s: %s on domain %s: %v", ErrRemoteCommunication, e.Command, e.Domain, e.Err)
}

func (e *RemoteCommunicationError) Unwrap() []error {
	return []error{ErrRemoteCommunication, e.Err}
}

// TimedOutError reports a guest command that never reported exited
type TimedOutError struct {
	Domain   string
	Pid      int
	Attempts int
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("%s: pid %d on domain %s still running after %d status polls",
		ErrTimedOut, e.Pid, e.Domain, e.Attempts)
}

func (e *TimedOutError) Unwrap() error {
	return ErrTimedOut
}

// GuestCommandFailedError carries the non-zero exit code of a guest command
type GuestCommandFailedError struct {
	Path     string
	ExitCode int
}

func (e *GuestCommandFailedError) Error() string {
	return fmt.Sprintf("%s: %s exited with code %d", ErrGuestCommandFailed, e.Path, e.ExitCode)
}

func (e *GuestCommandFailedError) Unwrap() error {
	return ErrGuestCommandFailed
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var failed *GuestCommandFailedError
	if errors.As(err, &failed) {
		if failed.ExitCode > 0 && failed.ExitCode < 256 {
			return failed.ExitCode
		}
		return ExitFailure
	}

	if errors.Is(err, ErrTimedOut) {
		return ExitTimeout
	}

	return ExitFailure
}
