package k8stest

import (
	"context"
	"strings"

	appsV1 "k8s.io/api/apps/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

func ListDeploymentsWithPrefix(ns string, prefix string) ([]appsV1.Deployment, error) {
	depList, err := gTestEnv.KubeInt.AppsV1().Deployments(ns).List(context.TODO(), metaV1.ListOptions{})
	if err != nil {
		return nil, err
	}
	var deps []appsV1.Deployment
	for _, dep := range depList.Items {
		if strings.HasPrefix(dep.Name, prefix) {
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// GetDeploymentReplicas returns the desired replica count of the deployment.
func GetDeploymentReplicas(ns string, name string) (int32, error) {
	dep, err := gTestEnv.KubeInt.AppsV1().Deployments(ns).Get(context.TODO(), name, metaV1.GetOptions{})
	if err != nil {
		return 0, err
	}
	if dep.Spec.Replicas == nil {
		return 1, nil
	}
	return *dep.Spec.Replicas, nil
}

func DeploymentReady(ns string, name string) bool {
	dep, err := gTestEnv.KubeInt.AppsV1().Deployments(ns).Get(context.TODO(), name, metaV1.GetOptions{})
	if err != nil {
		logf.Log.Info("Failed to get deployment", "error", err)
		return false
	}
	for _, condition := range dep.Status.Conditions {
		if condition.Type == appsV1.DeploymentAvailable && condition.Status == "True" {
			return true
		}
	}
	return false
}

func DaemonSetReady(ns string, name string) bool {
	daemon, err := gTestEnv.KubeInt.AppsV1().DaemonSets(ns).Get(context.TODO(), name, metaV1.GetOptions{})
	if err != nil {
		logf.Log.Info("Failed to get daemonset", "error", err)
		return false
	}
	status := daemon.Status
	return status.DesiredNumberScheduled == status.CurrentNumberScheduled &&
		status.DesiredNumberScheduled == status.NumberReady &&
		status.DesiredNumberScheduled == status.NumberAvailable
}
