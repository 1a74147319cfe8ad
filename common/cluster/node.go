package cluster

import (
	"context"
	"strings"
	"time"

	"cortx-e2e/common/cterror"
)

// Node runs shell command lines on a cluster host.
type Node interface {
	Hostname() string
	// Execute returns the combined output of cmd, a non zero exit status is
	// reported as a CommandFailed exception carrying the output.
	Execute(ctx context.Context, cmd string) ([]byte, error)
}

// ExecuteLines runs cmd on node and returns the non-empty lines of its output.
func ExecuteLines(ctx context.Context, node Node, cmd string) ([]string, error) {
	out, err := node.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(out)), nil
}

// SplitLines splits text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// WithCommandTimeout bounds ctx by timeoutSecs, no bound is applied for values <= 0.
func WithCommandTimeout(ctx context.Context, timeoutSecs int) (context.Context, context.CancelFunc) {
	if timeoutSecs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
}

// Quote single quotes s for sh when it holds anything beyond a plain word.
func Quote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,@+", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func commandFailed(host string, cmd string, out []byte, err error) error {
	return cterror.WrapException(err, cterror.CommandFailed, "host %s command %q output %q", host, cmd, strings.TrimSpace(string(out)))
}
