package k8stest

import (
	"context"
	"sort"
	"strings"
	"time"

	"cortx-e2e/common/cterror"

	errors "github.com/pkg/errors"
	coreV1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// ListPod return lis of pods in the given namespace
func ListPod(ns string) (*coreV1.PodList, error) {
	pods, err := gTestEnv.KubeInt.CoreV1().Pods(ns).List(context.TODO(), metaV1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pods")
	}
	return pods, nil
}

// ListPodsWithPrefix returns the pods of ns named with prefix, sorted by name.
func ListPodsWithPrefix(ns string, prefix string) ([]coreV1.Pod, error) {
	podList, err := ListPod(ns)
	if err != nil {
		return nil, err
	}
	var pods []coreV1.Pod
	for _, pod := range podList.Items {
		if strings.HasPrefix(pod.Name, prefix) {
			pods = append(pods, pod)
		}
	}
	sort.Slice(pods, func(i, j int) bool { return pods[i].Name < pods[j].Name })
	return pods, nil
}

// PodReady is true for a running pod whose containers are all ready.
func PodReady(pod *coreV1.Pod) bool {
	if pod.Status.Phase != coreV1.PodRunning || pod.DeletionTimestamp != nil {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return true
}

func IsPodRunning(ns string, podName string) bool {
	pod, err := gTestEnv.KubeInt.CoreV1().Pods(ns).Get(context.TODO(), podName, metaV1.GetOptions{})
	if err != nil {
		logf.Log.Info("IsPodRunning", "pod", podName, "error", err)
		return false
	}
	return PodReady(pod)
}

// PodRestartCount sums the restarts of the containers of pod.
func PodRestartCount(pod *coreV1.Pod) int32 {
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += cs.RestartCount
	}
	return restarts
}

// WaitForPodsRunning waits until count pods named with prefix are ready in ns.
func WaitForPodsRunning(ns string, prefix string, count int, timeoutSecs int) error {
	deadline := time.Now().Add(time.Duration(timeoutSecs) * time.Second)
	for {
		pods, err := ListPodsWithPrefix(ns, prefix)
		if err == nil {
			ready := 0
			for ix := range pods {
				if PodReady(&pods[ix]) {
					ready++
				}
			}
			if ready == count && len(pods) == count {
				return nil
			}
			logf.Log.Info("Waiting for pods", "prefix", prefix, "ready", ready, "pods", len(pods), "want", count)
		}
		if !time.Now().Before(deadline) {
			return cterror.NewException(cterror.PodStateError, "%d %s pods not running in %s after %ds", count, prefix, ns, timeoutSecs)
		}
		time.Sleep(pollSleep)
	}
}

// DeletePod deletes the pod, a pod that does not exist is not an error.
func DeletePod(ns string, podName string) error {
	logf.Log.Info("Deleting pod", "pod", podName, "namespace", ns)
	err := gTestEnv.KubeInt.CoreV1().Pods(ns).Delete(context.TODO(), podName, metaV1.DeleteOptions{})
	if k8serrors.IsNotFound(err) {
		return nil
	}
	return err
}

// PodPresentOnNode returns true if a pod named with prefix is scheduled on nodeName
func PodPresentOnNode(ns string, prefix string, nodeName string) (bool, error) {
	pods, err := ListPodsWithPrefix(ns, prefix)
	if err != nil {
		return false, err
	}
	for _, pod := range pods {
		if pod.Spec.NodeName == nodeName {
			return true, nil
		}
	}
	return false, nil
}

// CheckPodsHealth fails if any pod of ns is not running, or has restarted.
func CheckPodsHealth(ns string) error {
	podList, err := ListPod(ns)
	if err != nil {
		return err
	}
	var accErr error
	for ix := range podList.Items {
		pod := &podList.Items[ix]
		if pod.Status.Phase == coreV1.PodSucceeded {
			continue
		}
		if !PodReady(pod) {
			accErr = MakeAccumulatedError(accErr, errors.Errorf("pod %s is %s", pod.Name, pod.Status.Phase))
		} else if restarts := PodRestartCount(pod); restarts != 0 {
			logf.Log.Info("Pod has restarted", "pod", pod.Name, "restarts", restarts)
		}
	}
	return accErr
}
