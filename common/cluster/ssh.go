package cluster

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"strconv"
	"sync"
	"time"

	"cortx-e2e/common/cterror"
	"cortx-e2e/common/e2e_config"

	"golang.org/x/crypto/ssh"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

const sshDialTimeout = 30 * time.Second

// LogicalNode runs commands on a cluster host over ssh.
// The connection is established on first use and shared by all commands.
type LogicalNode struct {
	cfg    e2e_config.NodeConfig
	mu     sync.Mutex
	client *ssh.Client
}

func NewLogicalNode(cfg e2e_config.NodeConfig) *LogicalNode {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Username == "" {
		cfg.Username = "root"
	}
	return &LogicalNode{cfg: cfg}
}

func (n *LogicalNode) Hostname() string {
	return n.cfg.Hostname
}

func (n *LogicalNode) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if n.cfg.KeyFile != "" {
		data, err := ioutil.ReadFile(n.cfg.KeyFile)
		if err != nil {
			return nil, cterror.WrapException(err, cterror.MissingFile, "ssh key %s", n.cfg.KeyFile)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, cterror.WrapException(err, cterror.InvalidConfig, "ssh key %s", n.cfg.KeyFile)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if n.cfg.Password != "" {
		auth = append(auth, ssh.Password(n.cfg.Password))
	}
	if len(auth) == 0 {
		return nil, cterror.NewException(cterror.InvalidConfig, "no ssh credentials for %s", n.cfg.Hostname)
	}
	return &ssh.ClientConfig{
		User:            n.cfg.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshDialTimeout,
	}, nil
}

func (n *LogicalNode) connect() (*ssh.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return n.client, nil
	}
	cfg, err := n.clientConfig()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(n.cfg.Hostname, strconv.Itoa(n.cfg.Port))
	logf.Log.Info("Connecting", "node", addr, "user", n.cfg.Username)
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, cterror.WrapException(err, cterror.ConnectionFailed, "ssh %s", addr)
	}
	n.client = client
	return client, nil
}

// reset drops a connection that failed so the next command reconnects.
func (n *LogicalNode) reset(client *ssh.Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == client {
		_ = n.client.Close()
		n.client = nil
	}
}

type sshResult struct {
	out []byte
	err error
}

func (n *LogicalNode) run(ctx context.Context, cmd string, stdin []byte) ([]byte, error) {
	client, err := n.connect()
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		n.reset(client)
		return nil, cterror.WrapException(err, cterror.ConnectionFailed, "ssh session on %s", n.cfg.Hostname)
	}
	defer session.Close()
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	logf.Log.V(1).Info("ssh exec", "node", n.cfg.Hostname, "cmd", cmd)
	done := make(chan sshResult, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- sshResult{out, err}
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, cterror.WrapException(ctx.Err(), cterror.Timeout, "host %s command %q", n.cfg.Hostname, cmd)
	case res := <-done:
		if res.err != nil {
			return res.out, commandFailed(n.cfg.Hostname, cmd, res.out, res.err)
		}
		return res.out, nil
	}
}

func (n *LogicalNode) Execute(ctx context.Context, cmd string) ([]byte, error) {
	return n.run(ctx, cmd, nil)
}

// Upload writes data to remotePath on the node.
func (n *LogicalNode) Upload(ctx context.Context, remotePath string, data []byte, mode uint32) error {
	_, err := n.run(ctx, uploadCmd(remotePath, mode), data)
	return err
}

func uploadCmd(remotePath string, mode uint32) string {
	return fmt.Sprintf("cat > %s && chmod %o %s", Quote(remotePath), mode, Quote(remotePath))
}

func (n *LogicalNode) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == nil {
		return nil
	}
	err := n.client.Close()
	n.client = nil
	return err
}

// NewNodes returns a LogicalNode for every configured node.
func NewNodes(cfgs []e2e_config.NodeConfig) []*LogicalNode {
	nodes := make([]*LogicalNode, 0, len(cfgs))
	for _, cfg := range cfgs {
		nodes = append(nodes, NewLogicalNode(cfg))
	}
	return nodes
}
