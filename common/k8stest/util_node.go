package k8stest

// Utility functions for manipulation of nodes.
import (
	"context"

	"github.com/pkg/errors"
	coreV1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type NodeLocation struct {
	NodeName   string
	IPAddress  string
	MasterNode bool
}

func isControlPlane(node *coreV1.Node) bool {
	for _, label := range []string{"node-role.kubernetes.io/master", "node-role.kubernetes.io/control-plane"} {
		if _, ok := node.Labels[label]; ok {
			return true
		}
	}
	return false
}

// returns vector of populated NodeLocation structs
func GetNodeLocs() ([]NodeLocation, error) {
	nodeList, err := gTestEnv.KubeInt.CoreV1().Nodes().List(context.TODO(), metaV1.ListOptions{})
	if err != nil {
		return nil, err
	}
	nodeLocs := make([]NodeLocation, 0, len(nodeList.Items))
	for ix := range nodeList.Items {
		k8snode := &nodeList.Items[ix]
		addrstr := ""
		namestr := ""
		for _, addr := range k8snode.Status.Addresses {
			if addr.Type == coreV1.NodeInternalIP {
				addrstr = addr.Address
			}
			if addr.Type == coreV1.NodeHostName {
				namestr = addr.Address
			}
		}
		if namestr == "" || addrstr == "" {
			return nil, errors.New("node lacks expected fields")
		}
		nodeLocs = append(nodeLocs, NodeLocation{
			NodeName:   namestr,
			IPAddress:  addrstr,
			MasterNode: isControlPlane(k8snode),
		})
	}
	return nodeLocs, nil
}

// WorkerNodeNames returns the names of the nodes that are not control plane nodes.
func WorkerNodeNames() ([]string, error) {
	nodes, err := GetNodeLocs()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, node := range nodes {
		if !node.MasterNode {
			names = append(names, node.NodeName)
		}
	}
	return names, nil
}

func AreNodesReady() (bool, error) {
	nodes, err := gTestEnv.KubeInt.CoreV1().Nodes().List(context.TODO(), metaV1.ListOptions{})
	if err != nil {
		return false, err
	}
	for ix := range nodes.Items {
		if !IsNodeReady(&nodes.Items[ix]) {
			return false, nil
		}
	}
	return true, nil
}

func IsNodeReady(node *coreV1.Node) bool {
	for _, nodeCond := range node.Status.Conditions {
		if nodeCond.Type == coreV1.NodeReady && nodeCond.Status == coreV1.ConditionTrue {
			return true
		}
	}
	logf.Log.Info("Node not ready", "node", node.Name)
	return false
}
