package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"cortx-e2e/common/cterror"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// AgentRestPort is the port on which e2e-agent is listening
const AgentRestPort = "10012"

// NodeList is the list of nodes to be passed to e2e-agent
type NodeList struct {
	Nodes []string `json:"nodes"`
}

type CmdList struct {
	Cmd string `json:"cmd"`
}

// AgentNode runs commands through the e2e-agent pod deployed on a node.
type AgentNode struct {
	Host string
	Port string
	// Client defaults to http.DefaultClient
	Client *http.Client
}

func NewAgentNode(host string) *AgentNode {
	return &AgentNode{Host: host, Port: AgentRestPort}
}

func (a *AgentNode) Hostname() string {
	return a.Host
}

func (a *AgentNode) url(path string) string {
	port := a.Port
	if port == "" {
		port = AgentRestPort
	}
	return "http://" + a.Host + ":" + port + path
}

func (a *AgentNode) sendRequest(ctx context.Context, reqType, path string, data interface{}) ([]byte, error) {
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	reqData := new(bytes.Buffer)
	if data != nil {
		if err := json.NewEncoder(reqData).Encode(data); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, reqType, a.url(path), reqData)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, cterror.WrapException(err, cterror.ConnectionFailed, "e2e-agent %s", a.Host)
	}
	defer resp.Body.Close()
	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return bodyBytes, fmt.Errorf("e2e-agent %s%s status %d: %s", a.Host, path, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return bodyBytes, nil
}

func (a *AgentNode) Execute(ctx context.Context, cmd string) ([]byte, error) {
	out, err := a.sendRequest(ctx, http.MethodPost, "/exec", CmdList{Cmd: cmd})
	if err != nil {
		return out, commandFailed(a.Host, cmd, out, err)
	}
	return out, nil
}

// IsAgentReachable checks if the agent pod is in reachable
func (a *AgentNode) IsAgentReachable(ctx context.Context) error {
	_, err := a.sendRequest(ctx, http.MethodGet, "/", nil)
	return err
}

// UngracefulReboot crashes and reboots the host machine
func (a *AgentNode) UngracefulReboot(ctx context.Context) error {
	logf.Log.Info("Ungracefully rebooting node", "addr", a.Host)
	_, err := a.sendRequest(ctx, http.MethodPost, "/ungracefulReboot", nil)
	return err
}

// DropConnectionsFromNodes creates rules to drop connections from other k8s nodes
func (a *AgentNode) DropConnectionsFromNodes(ctx context.Context, nodes []string) error {
	logf.Log.Info("Dropping connections from nodes", "addr", a.Host, "nodes", nodes)
	_, err := a.sendRequest(ctx, http.MethodPost, "/dropConnectionsFromNodes", NodeList{Nodes: nodes})
	return err
}

// AcceptConnectionsFromNodes removes the rules set by
// DropConnectionsFromNodes so that other k8s nodes can reach this node again
func (a *AgentNode) AcceptConnectionsFromNodes(ctx context.Context, nodes []string) error {
	logf.Log.Info("Accepting connections from nodes", "addr", a.Host, "nodes", nodes)
	_, err := a.sendRequest(ctx, http.MethodPost, "/acceptConnectionsFromNodes", NodeList{Nodes: nodes})
	return err
}
