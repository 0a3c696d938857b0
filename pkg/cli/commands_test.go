package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
	"github.com/computerscienceiscool/nodekit/pkg/app"
	"github.com/computerscienceiscool/nodekit/pkg/guest"
	"github.com/computerscienceiscool/nodekit/pkg/hardware"
	"github.com/computerscienceiscool/nodekit/pkg/runner"
)

type cannedRunner struct {
	stdout map[string]string
	calls  []string
}

func (r *cannedRunner) Run(_ context.Context, name string, args ...string) (runner.Result, error) {
	r.calls = append(r.calls, runner.CommandLine(name, args...))
	return runner.Result{Stdout: r.stdout[name]}, nil
}

type cannedBridge struct {
	replies []string
	sent    []guest.Command
}

func (b *cannedBridge) Send(_ context.Context, _ string, cmd guest.Command) (json.RawMessage, error) {
	b.sent = append(b.sent, cmd)
	if len(b.replies) == 0 {
		return nil, fmt.Errorf("no reply scripted for %s", cmd.Execute)
	}
	r := b.replies[0]
	b.replies = b.replies[1:]
	return json.RawMessage(r), nil
}

func hostFacts() app.Option {
	return app.WithHostFacts(
		func(context.Context) (string, error) { return "os-host", nil },
		func(context.Context) (hardware.Capacity, error) { return hardware.Capacity{CPUs: 4, MemoryBytes: 8 << 30}, nil },
	)
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestHWReport_RegisterIsDefault(t *testing.T) {
	tools := &cannedRunner{stdout: map[string]string{
		"lshw":                   `[{"id":"display","product":"GA102","vendor":"NVIDIA Corporation","businfo":"pci@0000:3b:00.0"}]`,
		"/usr/local/bin/eru-cli": "node updated",
	}}
	cmd := NewHWReportCommand(app.WithLogger(zerolog.Nop()), app.WithRunner(tools), hostFacts())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{"--hostname", "gpu-node-01"}, &errOut)
	require.Equal(t, 0, code, errOut.String())

	require.Len(t, tools.calls, 2)
	assert.True(t, strings.HasSuffix(tools.calls[1], " gpu-node-01"))
	assert.Contains(t, out.String(), "node updated")
}

func TestHWReport_DryRun(t *testing.T) {
	tools := &cannedRunner{stdout: map[string]string{"lshw": "[]"}}
	cmd := NewHWReportCommand(app.WithLogger(zerolog.Nop()), app.WithRunner(tools), hostFacts())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{"register", "--dry-run"}, &errOut)
	require.Equal(t, 0, code, errOut.String())

	assert.Len(t, tools.calls, 1, "only lshw runs")
	assert.Contains(t, out.String(), `--extra-resources '{"gpu":{"gpu_map":{}}}' os-host`)
}

func TestHWReport_GPUs(t *testing.T) {
	tools := &cannedRunner{stdout: map[string]string{
		"lshw": `[{"id":"display","product":"GA102","vendor":"NVIDIA Corporation","businfo":"pci@0000:3b:00.0"}]`,
	}}
	cmd := NewHWReportCommand(app.WithLogger(zerolog.Nop()), app.WithRunner(tools))
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	require.Equal(t, 0, execute(cmd, []string{"gpus"}, &errOut), errOut.String())

	var records []hardware.DeviceRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	assert.Equal(t, []hardware.DeviceRecord{{Address: "0000:3b:00.0", Product: "GA102", Vendor: "NVIDIA Corporation"}}, records)
}

func TestHWReport_CPUs(t *testing.T) {
	tools := &cannedRunner{stdout: map[string]string{
		"lshw": `[{"id":"cpu:0","businfo":"cpu@0"},{"id":"cpu:1","businfo":"cpu@1"}]`,
	}}

	for _, tt := range []struct {
		args []string
		want int
	}{
		{args: []string{"cpus"}, want: 1},
		{args: []string{"cpus", "--all"}, want: 2},
	} {
		cmd := NewHWReportCommand(app.WithLogger(zerolog.Nop()), app.WithRunner(tools))
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)

		require.Equal(t, 0, execute(cmd, tt.args, &errOut), errOut.String())
		var records []hardware.DeviceRecord
		require.NoError(t, json.Unmarshal(out.Bytes(), &records))
		assert.Len(t, records, tt.want, strings.Join(tt.args, " "))
	}
}

func TestHWReport_MalformedDescriptorExitsNonZero(t *testing.T) {
	tools := &cannedRunner{stdout: map[string]string{"lshw": `[{"id":"display","businfo":"pci@0000:3b:00.0"}]`}}
	cmd := NewHWReportCommand(app.WithLogger(zerolog.Nop()), app.WithRunner(tools), hostFacts())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{}, &errOut)
	assert.Equal(t, nkerrors.ExitFailure, code)
	assert.Contains(t, errOut.String(), "MALFORMED_DESCRIPTOR")
}

func TestHWReport_History(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	tools := &cannedRunner{stdout: map[string]string{"lshw": "[]"}}

	cmd := NewHWReportCommand(app.WithLogger(zerolog.Nop()), app.WithRunner(tools))
	var errOut bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	require.Equal(t, 0, execute(cmd, []string{"gpus", "--audit-db", db}, &errOut), errOut.String())

	cmd = NewHWReportCommand(app.WithLogger(zerolog.Nop()))
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.Equal(t, 0, execute(cmd, []string{"history", "--audit-db", db}, &errOut), errOut.String())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TOOL")
	assert.Contains(t, lines[1], "hwreport")
	assert.Contains(t, lines[1], "gpus")
}

func TestGuestExec_PassesGuestFlagsThrough(t *testing.T) {
	bridge := &cannedBridge{replies: []string{
		`{"return":{"pid":42}}`,
		`{"return":{"exited":false}}`,
		fmt.Sprintf(`{"return":{"exited":true,"exitcode":0,"out-data":%q}}`, b64("total 0")),
	}}
	cmd := NewGuestExecCommand(
		app.WithLogger(zerolog.Nop()),
		app.WithBridge(bridge),
		app.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{"--domain", "vm1", "ls", "-la", "/tmp"}, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "total 0\n", out.String())

	require.Len(t, bridge.sent, 3)
	assert.Equal(t, guest.ExecArgs{Path: "ls", Arg: []string{"-la", "/tmp"}, CaptureOutput: true}, bridge.sent[0].Arguments)
}

func TestGuestExec_PropagatesExitCode(t *testing.T) {
	bridge := &cannedBridge{replies: []string{
		`{"return":{"pid":42}}`,
		fmt.Sprintf(`{"return":{"exited":true,"exitcode":2,"err-data":%q}}`, b64("boom")),
	}}
	cmd := NewGuestExecCommand(app.WithLogger(zerolog.Nop()), app.WithBridge(bridge))
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{"--domain", "vm1", "/bin/false"}, &errOut)
	assert.Equal(t, 2, code)
	assert.True(t, strings.HasPrefix(errOut.String(), "boom\n"))
}

func TestGuestExec_TimeoutExitCode(t *testing.T) {
	bridge := &cannedBridge{replies: []string{
		`{"return":{"pid":42}}`,
		`{"return":{"exited":false}}`,
		`{"return":{"exited":false}}`,
	}}
	cmd := NewGuestExecCommand(
		app.WithLogger(zerolog.Nop()),
		app.WithBridge(bridge),
		app.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	var errOut bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{"--max-attempts", "2", "--domain", "vm1", "sleep", "600"}, &errOut)
	assert.Equal(t, nkerrors.ExitTimeout, code)
	assert.Contains(t, errOut.String(), "TIMED_OUT")
}

func TestGuestExec_NoCommand(t *testing.T) {
	bridge := &cannedBridge{}
	cmd := NewGuestExecCommand(app.WithLogger(zerolog.Nop()), app.WithBridge(bridge))
	var errOut bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&errOut)

	code := execute(cmd, []string{"--domain", "host1"}, &errOut)
	assert.Equal(t, nkerrors.ExitFailure, code)
	assert.Contains(t, errOut.String(), "INVALID_ARGUMENTS")
	assert.Empty(t, bridge.sent)
}

func TestHWReport_InitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodekit.config.yaml")

	cmd := NewHWReportCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	require.Equal(t, 0, execute(cmd, []string{"init-config", path}, &errOut), errOut.String())
	assert.Contains(t, out.String(), path)

	v := newViper()
	require.NoError(t, readConfig(v, path))
	cfg, err := buildConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Guest.MaxAttempts)

	cmd = NewHWReportCommand()
	assert.Equal(t, nkerrors.ExitFailure, execute(cmd, []string{"init-config", path}, &errOut))
}
