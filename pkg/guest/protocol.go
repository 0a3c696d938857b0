// Package guest runs commands inside libvirt guests through the QEMU guest agent.
package guest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Guest agent commands
const (
	CommandExec       = "guest-exec"
	CommandExecStatus = "guest-exec-status"
)

// Command is one guest agent request
type Command struct {
	Execute   string `json:"execute"`
	Arguments any    `json:"arguments,omitempty"`
}

// ExecArgs are the guest-exec arguments. Arg is always sent, even when empty.
type ExecArgs struct {
	Path          string   `json:"path"`
	Arg           []string `json:"arg"`
	CaptureOutput bool     `json:"capture-output"`
}

// ExecStatusArgs are the guest-exec-status arguments
type ExecStatusArgs struct {
	Pid int `json:"pid"`
}

// ExecHandle is the guest-exec reply
type ExecHandle struct {
	Pid int `json:"pid"`
}

// ExecStatus is the guest-exec-status reply. Only Exited is meaningful
// until the process has exited.
type ExecStatus struct {
	Exited       bool   `json:"exited"`
	ExitCode     int    `json:"exitcode"`
	OutData      string `json:"out-data"`
	ErrData      string `json:"err-data"`
	OutTruncated bool   `json:"out-truncated"`
	ErrTruncated bool   `json:"err-truncated"`
}

// AgentError is the error object of a failed agent command
type AgentError struct {
	Class string `json:"class"`
	Desc  string `json:"desc"`
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("guest agent error %s: %s", e.Class, e.Desc)
}

type response struct {
	Return json.RawMessage `json:"return"`
	Error  *AgentError     `json:"error"`
}

// NewExecCommand builds a guest-exec request with output capture on
func NewExecCommand(path string, args []string) Command {
	if args == nil {
		args = []string{}
	}
	return Command{
		Execute: CommandExec,
		Arguments: ExecArgs{
			Path:          path,
			Arg:           args,
			CaptureOutput: true,
		},
	}
}

// NewExecStatusCommand builds a guest-exec-status request for pid
func NewExecStatusCommand(pid int) Command {
	return Command{
		Execute:   CommandExecStatus,
		Arguments: ExecStatusArgs{Pid: pid},
	}
}

// decodeReturn unpacks the "return" member of a reply into v
func decodeReturn(raw []byte, v any) error {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("invalid agent reply: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if len(resp.Return) == 0 {
		return fmt.Errorf("agent reply has no return value")
	}
	if err := json.Unmarshal(resp.Return, v); err != nil {
		return fmt.Errorf("invalid agent return value: %w", err)
	}
	return nil
}

func decodeData(data string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("invalid base64 output: %w", err)
	}
	return string(b), nil
}
