package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/config"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

// Bridge delivers one command to a domain's guest agent and returns the raw reply
type Bridge interface {
	Send(ctx context.Context, domain string, cmd Command) (json.RawMessage, error)
}

// VirshBridge talks to the guest agent through virsh qemu-agent-command
type VirshBridge struct {
	runner       runner.Runner
	virshPath    string
	connectURI   string
	agentTimeout int
}

// NewVirshBridge creates a bridge from the guest configuration
func NewVirshBridge(r runner.Runner, cfg config.GuestConfig) *VirshBridge {
	virshPath := cfg.VirshPath
	if virshPath == "" {
		virshPath = config.DefaultVirshPath
	}
	return &VirshBridge{
		runner:       r,
		virshPath:    virshPath,
		connectURI:   cfg.ConnectURI,
		agentTimeout: cfg.AgentTimeout,
	}
}

// Args returns the virsh argument vector for sending payload to domain
func (b *VirshBridge) Args(domain string, payload []byte) []string {
	var args []string
	if b.connectURI != "" {
		args = append(args, "-c", b.connectURI)
	}
	args = append(args, "qemu-agent-command", "--domain", domain)
	if b.agentTimeout > 0 {
		args = append(args, "--timeout", strconv.Itoa(b.agentTimeout))
	}
	return append(args, string(payload))
}

// Send runs virsh once; failures are not retried
func (b *VirshBridge) Send(ctx context.Context, domain string, cmd Command) (json.RawMessage, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, &nkerrors.RemoteCommunicationError{Domain: domain, Command: cmd.Execute, Err: err}
	}

	result, err := b.runner.Run(ctx, b.virshPath, b.Args(domain, payload)...)
	if err != nil {
		return nil, &nkerrors.RemoteCommunicationError{Domain: domain, Command: cmd.Execute, Err: err}
	}

	out := strings.TrimSpace(result.Stdout)
	if !json.Valid([]byte(out)) {
		return nil, &nkerrors.RemoteCommunicationError{
			Domain:  domain,
			Command: cmd.Execute,
			Err:     fmt.Errorf("virsh returned non-JSON output: %q", out),
		}
	}
	return json.RawMessage(out), nil
}
