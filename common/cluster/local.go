package cluster

import (
	"context"
	"os"
	"os/exec"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// LocalNode runs commands on the host running the tests.
type LocalNode struct{}

func (LocalNode) Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return name
}

func (n LocalNode) Execute(ctx context.Context, cmd string) ([]byte, error) {
	logf.Log.V(1).Info("local exec", "cmd", cmd)
	out, err := exec.CommandContext(ctx, "sh", "-c", cmd).CombinedOutput()
	if err != nil {
		return out, commandFailed(n.Hostname(), cmd, out, err)
	}
	return out, nil
}
