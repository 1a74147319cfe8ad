// Package health decides whether the cluster under test is fit to run a test.
package health

import (
	"context"
	"fmt"
	"time"

	"cortx-e2e/common/cterror"
	"cortx-e2e/common/csm"
	"cortx-e2e/common/hctl"
	"cortx-e2e/common/kubectl"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type Checker struct {
	Kubectl       *kubectl.Kubectl
	DataPodPrefix string
	HaxContainer  string
	// PodPrefix selects the pods that must be running, empty selects all pods of the namespace
	PodPrefix string
	// CSM is only needed by GetSysCapacity
	CSM *csm.Client
}

// HctlStatusJSON runs hctl status in the first data pod.
func (h *Checker) HctlStatusJSON(ctx context.Context) (*hctl.Status, error) {
	pods, err := h.Kubectl.PodNamesWithPrefix(ctx, h.DataPodPrefix)
	if err != nil {
		return nil, err
	}
	if len(pods) == 0 {
		return nil, cterror.NewException(cterror.PodNotFound, "no pod with prefix %s", h.DataPodPrefix)
	}
	out, err := h.Kubectl.ExecInPod(ctx, pods[0], h.HaxContainer, hctl.StatusJSONCmd)
	if err != nil {
		return nil, err
	}
	return hctl.ParseStatus(out)
}

// Problems lists what keeps the cluster from being healthy, nothing when it is.
func (h *Checker) Problems(ctx context.Context) ([]string, error) {
	pods, err := h.Kubectl.PodsWithPrefix(ctx, h.PodPrefix)
	if err != nil {
		return nil, err
	}
	var problems []string
	if len(pods) == 0 {
		problems = append(problems, fmt.Sprintf("no pods with prefix %q", h.PodPrefix))
	}
	for _, p := range pods {
		if !p.IsRunning() {
			problems = append(problems, fmt.Sprintf("pod %s is %s ready %s", p.Name, p.Status, p.Ready))
		}
	}
	if len(problems) != 0 {
		return problems, nil
	}

	st, err := h.HctlStatusJSON(ctx)
	if err != nil {
		return nil, err
	}
	if len(st.Nodes) == 0 {
		problems = append(problems, "hctl status reports no nodes")
	}
	for _, svc := range st.OfflineServices() {
		problems = append(problems, "service "+svc+" is not started")
	}
	return problems, nil
}

// CheckClusterHealth is true when all pods are running and all services are started.
func (h *Checker) CheckClusterHealth(ctx context.Context) (bool, error) {
	problems, err := h.Problems(ctx)
	if err != nil {
		return false, err
	}
	if len(problems) != 0 {
		logf.Log.Info("Cluster is not healthy", "problems", problems)
		return false, nil
	}
	return true, nil
}

// WaitHealthy polls the cluster health every sleep until it is healthy.
func (h *Checker) WaitHealthy(ctx context.Context, attempts int, sleep time.Duration) error {
	var problems []string
	for ix := 0; ix < attempts; ix++ {
		var err error
		problems, err = h.Problems(ctx)
		if err == nil && len(problems) == 0 {
			return nil
		}
		if err != nil {
			logf.Log.Info("Health check failed", "attempt", ix, "error", err)
			problems = []string{err.Error()}
		}
		if ix+1 < attempts {
			select {
			case <-ctx.Done():
				return cterror.WrapException(ctx.Err(), cterror.HealthCheckError, "%v", problems)
			case <-time.After(sleep):
			}
		}
	}
	return cterror.NewException(cterror.HealthCheckError, "after %d attempts: %v", attempts, problems)
}

func (h *Checker) GetByteCount(ctx context.Context) (hctl.ByteCount, error) {
	st, err := h.HctlStatusJSON(ctx)
	if err != nil {
		return hctl.ByteCount{}, err
	}
	return st.ByteCount, nil
}

func (h *Checker) GetSysCapacity(ctx context.Context) (csm.Capacity, error) {
	if h.CSM == nil {
		return csm.Capacity{}, cterror.NewException(cterror.InvalidConfig, "csm endpoint not configured")
	}
	return h.CSM.GetCapacity(ctx)
}
