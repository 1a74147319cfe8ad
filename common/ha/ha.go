// Package ha injects pod level faults: pods are deleted, or their deployments
// scaled down and back up, and the cluster is watched until it recovers.
package ha

import (
	"context"
	"sort"
	"strings"
	"time"

	"cortx-e2e/common/cterror"
	"cortx-e2e/common/kubectl"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type PodLifecycle struct {
	Kubectl *kubectl.Kubectl
	// Sleep between two polls of the pod states
	Sleep time.Duration
	// Attempts is the number of polls before giving up
	Attempts int
}

// New polls every pollSecs until timeoutSecs have elapsed.
func New(k *kubectl.Kubectl, pollSecs, timeoutSecs int) *PodLifecycle {
	if pollSecs <= 0 {
		pollSecs = 1
	}
	attempts := timeoutSecs / pollSecs
	if attempts < 1 {
		attempts = 1
	}
	return &PodLifecycle{Kubectl: k, Sleep: time.Duration(pollSecs) * time.Second, Attempts: attempts}
}

// RestoreSet holds the replica counts of deployments scaled down by ShutdownPods.
type RestoreSet map[string]int

func (p *PodLifecycle) poll(ctx context.Context, e cterror.Error, what string, done func() (bool, error)) error {
	for ix := 0; ix < p.Attempts; ix++ {
		ok, err := done()
		if err != nil {
			logf.Log.Info("Poll failed", "waiting for", what, "attempt", ix, "error", err)
		} else if ok {
			return nil
		}
		if ix+1 < p.Attempts {
			select {
			case <-ctx.Done():
				return cterror.WrapException(ctx.Err(), e, "waiting for %s", what)
			case <-time.After(p.Sleep):
			}
		}
	}
	return cterror.NewException(e, "%s not reached after %d polls", what, p.Attempts)
}

func (p *PodLifecycle) DeletePod(ctx context.Context, pod string) error {
	if err := p.Kubectl.DeletePod(ctx, pod); err != nil {
		return cterror.WrapException(err, cterror.PodRestartError, "deleting %s", pod)
	}
	return nil
}

// WaitPodsRunning waits until count pods with prefix exist and all of them are running.
func (p *PodLifecycle) WaitPodsRunning(ctx context.Context, prefix string, count int) ([]kubectl.PodInfo, error) {
	var pods []kubectl.PodInfo
	err := p.poll(ctx, cterror.PodStateError, prefix+" pods running", func() (bool, error) {
		var err error
		pods, err = p.Kubectl.PodsWithPrefix(ctx, prefix)
		if err != nil {
			return false, err
		}
		if len(pods) != count {
			return false, nil
		}
		for _, pod := range pods {
			if !pod.IsRunning() {
				return false, nil
			}
		}
		return true, nil
	})
	return pods, err
}

// WaitPodsGone waits until no pod with prefix is left.
func (p *PodLifecycle) WaitPodsGone(ctx context.Context, prefix string) error {
	return p.poll(ctx, cterror.PodStateError, prefix+" pods gone", func() (bool, error) {
		pods, err := p.Kubectl.PodsWithPrefix(ctx, prefix)
		return err == nil && len(pods) == 0, err
	})
}

// namedBy is true when name is prefix itself or prefix followed by a dash separated suffix.
func namedBy(name, prefix string) bool {
	return name == prefix || strings.HasPrefix(name, prefix+"-")
}

// ShutdownPods scales every deployment named by prefix to zero and waits for
// its pods to go. The RestoreSet is returned even on error so that whatever was
// scaled down can be restored.
func (p *PodLifecycle) ShutdownPods(ctx context.Context, prefix string) (RestoreSet, error) {
	deps, err := p.Kubectl.GetDeployments(ctx)
	if err != nil {
		return nil, err
	}
	set := RestoreSet{}
	for _, d := range deps {
		if !namedBy(d.Name, prefix) || d.Desired == 0 {
			continue
		}
		if err := p.Kubectl.ScaleDeployment(ctx, d.Name, 0); err != nil {
			return set, err
		}
		set[d.Name] = d.Desired
	}
	if len(set) == 0 {
		return set, cterror.NewException(cterror.DeploymentMissing, "no running deployment with prefix %s", prefix)
	}
	logf.Log.Info("Pods shut down", "prefix", prefix, "deployments", set)
	for _, name := range set.names() {
		if err := p.WaitPodsGone(ctx, name+"-"); err != nil {
			return set, err
		}
	}
	return set, nil
}

func (set RestoreSet) names() []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RestorePods scales the deployments of set back and waits for their pods to run.
func (p *PodLifecycle) RestorePods(ctx context.Context, set RestoreSet) error {
	names := set.names()
	for _, name := range names {
		if err := p.Kubectl.ScaleDeployment(ctx, name, set[name]); err != nil {
			return err
		}
	}
	for _, name := range names {
		if _, err := p.WaitPodsRunning(ctx, name+"-", set[name]); err != nil {
			return err
		}
	}
	logf.Log.Info("Pods restored", "deployments", set)
	return nil
}

// RestartPod deletes pod and returns the name of the running pod that replaced it.
// Only a pod of the same deployment created after the deletion counts as the replacement.
func (p *PodLifecycle) RestartPod(ctx context.Context, pod string) (string, error) {
	dep, err := p.Kubectl.DeploymentForPod(ctx, pod)
	if err != nil {
		return "", err
	}
	existing, err := p.Kubectl.PodNamesWithPrefix(ctx, dep+"-")
	if err != nil {
		return "", err
	}
	known := make(map[string]bool, len(existing)+1)
	for _, name := range existing {
		known[name] = true
	}
	known[pod] = true
	if err := p.DeletePod(ctx, pod); err != nil {
		return "", err
	}
	var replacement string
	err = p.poll(ctx, cterror.PodRestartError, "replacement of "+pod, func() (bool, error) {
		pods, err := p.Kubectl.PodsWithPrefix(ctx, dep+"-")
		if err != nil {
			return false, err
		}
		for _, candidate := range pods {
			if !known[candidate.Name] && candidate.IsRunning() {
				replacement = candidate.Name
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	logf.Log.Info("Pod restarted", "pod", pod, "replacement", replacement)
	return replacement, nil
}
