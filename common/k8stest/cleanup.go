package k8stest

import (
	"context"
	"strings"
	"time"

	"cortx-e2e/common/cterror"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// CleanUpAccounts deletes the s3 accounts whose name starts with prefix and
// returns the number deleted. Deletion carries on past failures.
func (env *CortxEnv) CleanUpAccounts(ctx context.Context, prefix string) (int, error) {
	if env.CSM == nil {
		return 0, cterror.NewException(cterror.InvalidConfig, "csm endpoint not configured")
	}
	accounts, err := env.CSM.ListS3Accounts(ctx)
	if err != nil {
		return 0, err
	}
	var accErr error
	failed := 0
	deleted := 0
	for _, acc := range accounts {
		if !strings.HasPrefix(acc.AccountName, prefix) {
			continue
		}
		if err := env.CSM.DeleteS3Account(ctx, acc.AccountName); err != nil {
			accErr = MakeAccumulatedError(accErr, err)
			failed++
			continue
		}
		deleted++
	}
	logf.Log.Info("Cleaned up accounts", "prefix", prefix, "deleted", deleted, "failed", failed)
	return deleted, accErr
}

// RestartCortx restarts every data and server pod, one at a time, then waits
// for the cluster to report healthy.
func (env *CortxEnv) RestartCortx(ctx context.Context, attempts int, sleep time.Duration) error {
	for _, prefix := range []string{env.Cfg.Platform.DataPodPrefix, env.Cfg.Platform.ServerPodPrefix} {
		pods, err := env.Kubectl.PodNamesWithPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		for _, pod := range pods {
			if _, err := env.Pods.RestartPod(ctx, pod); err != nil {
				return err
			}
		}
	}
	return env.Health.WaitHealthy(ctx, attempts, sleep)
}
