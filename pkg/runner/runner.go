// Package runner executes the external tools the node utilities shell out to
// (lshw, eru-cli, virsh), either on the host or inside a container.
package runner

import (
	"context"
	"strings"
	"time"
)

// TimeoutExitCode is reported when a tool is killed by its deadline
const TimeoutExitCode = 124

// Result holds the outcome of one tool invocation
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner runs a single external command to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// CommandLine renders name and args as a copy-pasteable shell command
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(name))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			strings.ContainsRune("-_./=:,@+%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
