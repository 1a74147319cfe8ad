// Package kubectl drives kubectl and helm on the master node of the cluster
// under test and parses their tabular output into typed values.
package kubectl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cortx-e2e/common/cluster"
	"cortx-e2e/common/cterror"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type Kubectl struct {
	Node      cluster.Node
	Namespace string
	// TimeoutSecs bounds every command, 0 for no bound
	TimeoutSecs int
}

func New(node cluster.Node, namespace string, timeoutSecs int) *Kubectl {
	return &Kubectl{Node: node, Namespace: namespace, TimeoutSecs: timeoutSecs}
}

// Quote single quotes s for sh when it holds anything beyond a plain word.
func Quote(s string) string {
	return cluster.Quote(s)
}

// Cmd builds the kubectl command line for args in the configured namespace.
func (k *Kubectl) Cmd(args ...string) string {
	parts := []string{"kubectl"}
	if k.Namespace != "" {
		parts = append(parts, "-n", Quote(k.Namespace))
	}
	for _, a := range args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

func (k *Kubectl) run(ctx context.Context, cmd string) ([]byte, error) {
	ctx, cancel := cluster.WithCommandTimeout(ctx, k.TimeoutSecs)
	defer cancel()
	return k.Node.Execute(ctx, cmd)
}

func (k *Kubectl) Run(ctx context.Context, args ...string) ([]byte, error) {
	return k.run(ctx, k.Cmd(args...))
}

func (k *Kubectl) GetPods(ctx context.Context) ([]PodInfo, error) {
	out, err := k.Run(ctx, "get", "pods", "-o", "wide")
	if err != nil {
		return nil, err
	}
	return ParsePods(string(out)), nil
}

func (k *Kubectl) GetDeployments(ctx context.Context) ([]DeploymentInfo, error) {
	out, err := k.Run(ctx, "get", "deployments")
	if err != nil {
		return nil, err
	}
	return ParseDeployments(string(out)), nil
}

func (k *Kubectl) GetReplicaSets(ctx context.Context) ([]ReplicaSetInfo, error) {
	out, err := k.Run(ctx, "get", "replicasets")
	if err != nil {
		return nil, err
	}
	return ParseReplicaSets(string(out)), nil
}

// PodsWithPrefix returns the pods whose name starts with prefix.
func (k *Kubectl) PodsWithPrefix(ctx context.Context, prefix string) ([]PodInfo, error) {
	pods, err := k.GetPods(ctx)
	if err != nil {
		return nil, err
	}
	var matched []PodInfo
	for _, p := range pods {
		if strings.HasPrefix(p.Name, prefix) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (k *Kubectl) PodNamesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	pods, err := k.PodsWithPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pods))
	for _, p := range pods {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, nil
}

// PodHostMap maps the pods with prefix to the node they run on.
func (k *Kubectl) PodHostMap(ctx context.Context, prefix string) (map[string]string, error) {
	pods, err := k.PodsWithPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(pods))
	for _, p := range pods {
		m[p.Name] = p.Node
	}
	return m, nil
}

// HostPodMap maps each node to the pod with prefix running on it.
// With several such pods on a node the first listed wins.
func (k *Kubectl) HostPodMap(ctx context.Context, prefix string) (map[string]string, error) {
	pods, err := k.PodsWithPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(pods))
	for _, p := range pods {
		if _, ok := m[p.Node]; !ok {
			m[p.Node] = p.Name
		}
	}
	return m, nil
}

func (k *Kubectl) DeploymentForPod(ctx context.Context, pod string) (string, error) {
	deps, err := k.GetDeployments(ctx)
	if err != nil {
		return "", err
	}
	name, ok := MatchDeployment(deps, pod)
	if !ok {
		return "", cterror.NewException(cterror.DeploymentMissing, "no deployment for pod %s", pod)
	}
	return name, nil
}

func (k *Kubectl) GetPod(ctx context.Context, pod string) (PodInfo, error) {
	pods, err := k.GetPods(ctx)
	if err != nil {
		return PodInfo{}, err
	}
	for _, p := range pods {
		if p.Name == pod {
			return p, nil
		}
	}
	return PodInfo{}, cterror.NewException(cterror.PodNotFound, "%s in namespace %s", pod, k.Namespace)
}

func (k *Kubectl) IsPodRunning(ctx context.Context, pod string) (bool, error) {
	p, err := k.GetPod(ctx, pod)
	if cterror.HasCode(err, cterror.PodNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsRunning(), nil
}

func (k *Kubectl) DeletePod(ctx context.Context, pod string) error {
	logf.Log.Info("Deleting pod", "pod", pod, "namespace", k.Namespace)
	_, err := k.Run(ctx, "delete", "pod", pod)
	return err
}

func (k *Kubectl) ScaleDeployment(ctx context.Context, name string, replicas int) error {
	logf.Log.Info("Scaling deployment", "deployment", name, "replicas", replicas)
	_, err := k.Run(ctx, "scale", "deployment", name, fmt.Sprintf("--replicas=%d", replicas))
	if err != nil {
		return cterror.WrapException(err, cterror.ScaleError, "%s to %d", name, replicas)
	}
	return nil
}

// ExecInPod runs the shell command line cmd in container of pod.
func (k *Kubectl) ExecInPod(ctx context.Context, pod, container, cmd string) ([]byte, error) {
	args := []string{"exec", pod}
	if container != "" {
		args = append(args, "-c", container)
	}
	line := k.Cmd(args...) + " -- sh -c " + Quote(cmd)
	return k.run(ctx, line)
}

func (k *Kubectl) ApplyYaml(ctx context.Context, path string) error {
	logf.Log.Info("kubectl apply", "yaml file", path)
	_, err := k.Run(ctx, "apply", "-f", path)
	return err
}

func (k *Kubectl) DeleteYaml(ctx context.Context, path string) error {
	logf.Log.Info("kubectl delete", "yaml file", path)
	_, err := k.Run(ctx, "delete", "-f", path)
	return err
}

// HelmInstallCmd builds a helm upgrade --install command line, values are
// passed with --set in key order.
func HelmInstallCmd(release, chart, namespace string, values map[string]string) string {
	parts := []string{"helm", "upgrade", "--install", Quote(release), Quote(chart), "-n", Quote(namespace), "--create-namespace"}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, "--set", Quote(key+"="+values[key]))
	}
	return strings.Join(parts, " ")
}

func HelmUninstallCmd(release, namespace string) string {
	return strings.Join([]string{"helm", "uninstall", Quote(release), "-n", Quote(namespace)}, " ")
}

func (k *Kubectl) HelmInstall(ctx context.Context, release, chart string, values map[string]string) error {
	logf.Log.Info("helm install", "release", release, "chart", chart)
	_, err := k.run(ctx, HelmInstallCmd(release, chart, k.Namespace, values))
	return err
}

func (k *Kubectl) HelmUninstall(ctx context.Context, release string) error {
	logf.Log.Info("helm uninstall", "release", release)
	_, err := k.run(ctx, HelmUninstallCmd(release, k.Namespace))
	return err
}
