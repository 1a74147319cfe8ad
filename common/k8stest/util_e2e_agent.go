package k8stest

import (
	"context"

	"cortx-e2e/common"

	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const e2eAgentDaemonSet = "e2e-rest-agent"

func e2eReadyPodCount() int {
	daemonSet, err := gTestEnv.KubeInt.AppsV1().DaemonSets(common.NSE2EAgent).Get(context.TODO(), e2eAgentDaemonSet, metaV1.GetOptions{})
	if err != nil {
		return -1
	}
	return int(daemonSet.Status.NumberAvailable)
}

// E2EAgentReady is true when an e2e-agent pod is available on every worker node.
func E2EAgentReady() bool {
	workers, err := WorkerNodeNames()
	if err != nil || len(workers) == 0 {
		return false
	}
	return e2eReadyPodCount() == len(workers)
}
