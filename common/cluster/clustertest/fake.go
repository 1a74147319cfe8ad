// Package clustertest provides a scripted cluster.Node for unit tests.
package clustertest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"cortx-e2e/common/cterror"
)

type response struct {
	match   string
	outputs []string
	fail    bool
	calls   int
}

// FakeNode answers commands with canned output. The most recently registered
// response whose match is a substring of the command is used, commands with
// no response return empty output.
type FakeNode struct {
	Host      string
	mu        sync.Mutex
	responses []*response
	commands  []string
}

func NewFakeNode(host string) *FakeNode {
	return &FakeNode{Host: host}
}

func (f *FakeNode) Hostname() string {
	return f.Host
}

// On registers outputs for commands containing match. Successive calls
// consume the outputs in order, the last one repeats.
func (f *FakeNode) On(match string, outputs ...string) *FakeNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(outputs) == 0 {
		outputs = []string{""}
	}
	f.responses = append(f.responses, &response{match: match, outputs: outputs})
	return f
}

// Fail makes commands containing match fail with output.
func (f *FakeNode) Fail(match string, output string) *FakeNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, &response{match: match, outputs: []string{output}, fail: true})
	return f
}

func (f *FakeNode) Execute(ctx context.Context, cmd string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	if err := ctx.Err(); err != nil {
		return nil, cterror.WrapException(err, cterror.Timeout, "host %s command %q", f.Host, cmd)
	}
	for ix := len(f.responses) - 1; ix >= 0; ix-- {
		r := f.responses[ix]
		if !strings.Contains(cmd, r.match) {
			continue
		}
		out := r.outputs[len(r.outputs)-1]
		if r.calls < len(r.outputs) {
			out = r.outputs[r.calls]
		}
		r.calls++
		if r.fail {
			return []byte(out), cterror.WrapException(errors.New("exit status 1"), cterror.CommandFailed, "host %s command %q output %q", f.Host, cmd, out)
		}
		return []byte(out), nil
	}
	return nil, nil
}

// Commands returns the commands executed so far.
func (f *FakeNode) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// CommandsContaining returns the executed commands holding substr.
func (f *FakeNode) CommandsContaining(substr string) []string {
	var cmds []string
	for _, c := range f.Commands() {
		if strings.Contains(c, substr) {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
