package health

import (
	"context"
	"testing"
	"time"

	"cortx-e2e/common/cluster/clustertest"
	"cortx-e2e/common/cterror"
	"cortx-e2e/common/kubectl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runningPods = `NAME                                  READY   STATUS    RESTARTS   AGE   IP            NODE
cortx-data-ssc-vm-1-6b9d8c5f4-abcde   4/4     Running   0          2d    10.244.1.11   ssc-vm-1
cortx-server-ssc-vm-1-5d7f9-klmno     2/2     Running   0          2d    10.244.1.12   ssc-vm-1
`

const crashingPods = `NAME                                  READY   STATUS             RESTARTS   AGE   IP            NODE
cortx-data-ssc-vm-1-6b9d8c5f4-abcde   3/4     CrashLoopBackOff   7          2d    10.244.1.11   ssc-vm-1
cortx-server-ssc-vm-1-5d7f9-klmno     2/2     Running            0          2d    10.244.1.12   ssc-vm-1
`

const healthyStatus = `{"nodes": [{"name": "ssc-vm-1", "svcs": [{"name": "hax", "status": "started", "fid": "f1"}]}],
 "bytecount": {"critical": 0, "damaged": 0, "degraded": 0, "healthy": 1024}}`

const degradedStatus = `{"nodes": [{"name": "ssc-vm-1", "svcs": [{"name": "ioservice", "status": "offline", "fid": "f2"}]}],
 "bytecount": {"critical": 0, "damaged": 0, "degraded": 512, "healthy": 512}}`

func newChecker(node *clustertest.FakeNode) *Checker {
	return &Checker{
		Kubectl:       kubectl.New(node, "cortx", 10),
		DataPodPrefix: "cortx-data",
		HaxContainer:  "cortx-hax",
		PodPrefix:     "cortx",
	}
}

func TestHealthy(t *testing.T) {
	node := clustertest.NewFakeNode("master").On("get pods", runningPods).On("hctl status", healthyStatus)
	h := newChecker(node)
	ok, err := h.CheckClusterHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, node.CommandsContaining("exec cortx-data-ssc-vm-1-6b9d8c5f4-abcde -c cortx-hax"), 1)

	bc, err := h.GetByteCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), bc.Healthy)
}

func TestUnhealthyPods(t *testing.T) {
	node := clustertest.NewFakeNode("master").On("get pods", crashingPods).On("hctl status", healthyStatus)
	h := newChecker(node)
	problems, err := h.Problems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pod cortx-data-ssc-vm-1-6b9d8c5f4-abcde is CrashLoopBackOff ready 3/4"}, problems)
	assert.Empty(t, node.CommandsContaining("hctl status"))
}

func TestUnhealthyServices(t *testing.T) {
	node := clustertest.NewFakeNode("master").On("get pods", runningPods).On("hctl status", degradedStatus)
	ok, err := newChecker(node).CheckClusterHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWaitHealthy(t *testing.T) {
	node := clustertest.NewFakeNode("master").
		On("get pods", crashingPods, runningPods).
		On("hctl status", healthyStatus)
	h := newChecker(node)
	require.NoError(t, h.WaitHealthy(context.Background(), 3, time.Millisecond))
	assert.Len(t, node.CommandsContaining("get pods"), 3)

	node = clustertest.NewFakeNode("master").On("get pods", crashingPods)
	err := newChecker(node).WaitHealthy(context.Background(), 2, time.Millisecond)
	assert.True(t, cterror.HasCode(err, cterror.HealthCheckError))
}

func TestNoDataPod(t *testing.T) {
	node := clustertest.NewFakeNode("master").On("get pods", "No resources found in cortx namespace.")
	h := newChecker(node)
	_, err := h.HctlStatusJSON(context.Background())
	assert.True(t, cterror.HasCode(err, cterror.PodNotFound))

	_, err = h.GetSysCapacity(context.Background())
	assert.True(t, cterror.HasCode(err, cterror.InvalidConfig))
}
