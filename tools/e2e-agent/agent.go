package main

import (
	"context"
	"io/ioutil"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	SYSRQ_TRIGGER_FILE = "/host/proc/sysrq-trigger"
	// iptables rules added by the agent carry this comment
	ruleComment = "cortx-e2e-test"
)

// Runner runs a command on the host and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Agent struct {
	Run       Runner
	SysrqFile string
	HostAddr  string
	// Ports reachable from HostAddr after Setup
	Ports      []string
	CmdTimeout time.Duration
}

func NewAgent(hostAddr string, ports []string) *Agent {
	return &Agent{
		Run:        execRunner,
		SysrqFile:  SYSRQ_TRIGGER_FILE,
		HostAddr:   hostAddr,
		Ports:      ports,
		CmdTimeout: 10 * time.Minute,
	}
}

// Setup accepts connections to the agent ports ahead of any rule dropping node traffic.
func (a *Agent) Setup(ctx context.Context) error {
	for _, port := range a.Ports {
		if port == "" {
			continue
		}
		args := []string{"-t", "mangle", "-i", "eth0"}
		if a.HostAddr != "" {
			args = append(args, "-s", a.HostAddr)
		}
		args = append(args, "-I", "PREROUTING", "-p", "tcp", "--dport", port, "-j", "ACCEPT",
			"-m", "comment", "--comment", ruleComment)
		if out, err := a.Run(ctx, "iptables", args...); err != nil {
			log.WithFields(log.Fields{"port": port, "output": string(out)}).Error("iptables setup failed")
			return err
		}
	}
	return nil
}

// UngracefulReboot crashes and reboots the host machine
func (a *Agent) UngracefulReboot() error {
	log.Info("Rebooting node ungracefully")
	time.Sleep(2 * time.Second)
	return ioutil.WriteFile(a.SysrqFile, []byte("c"), 0644)
}

func dropRule(op string, node string) []string {
	// eth0 only, self communication uses lo
	return []string{"-t", "mangle", op, "PREROUTING", "-i", "eth0", "-s", node, "-j", "DROP",
		"-m", "comment", "--comment", ruleComment}
}

// DropConnectionsFromNodes creates rules to drop connections from other k8s nodes
func (a *Agent) DropConnectionsFromNodes(ctx context.Context, nodes []string) error {
	log.WithField("nodes", nodes).Info("Drop connections")
	for _, node := range nodes {
		if _, err := a.Run(ctx, "iptables", dropRule("-I", node)...); err != nil {
			return err
		}
	}
	return nil
}

// AcceptConnectionsFromNodes removes the rules set by
// DropConnectionsFromNodes so that other k8s nodes can reach this node again
func (a *Agent) AcceptConnectionsFromNodes(ctx context.Context, nodes []string) error {
	log.WithField("nodes", nodes).Info("Accept connections")
	for _, node := range nodes {
		if _, err := a.Run(ctx, "iptables", dropRule("-D", node)...); err != nil {
			return err
		}
	}
	return nil
}

// Exec runs cmdline through the host shell.
func (a *Agent) Exec(ctx context.Context, cmdline string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.CmdTimeout)
	defer cancel()
	log.WithField("cmd", cmdline).Debug("exec")
	return a.Run(ctx, "sh", "-c", cmdline)
}
