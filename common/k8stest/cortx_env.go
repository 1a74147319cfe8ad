package k8stest

import (
	"context"

	"cortx-e2e/common/cluster"
	"cortx-e2e/common/csm"
	"cortx-e2e/common/cterror"
	"cortx-e2e/common/datamanager"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/health"
	"cortx-e2e/common/kubectl"
	"cortx-e2e/common/s3io"
	"cortx-e2e/common/solution"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// CortxEnv bundles the clients a test needs to drive the cluster under test.
// S3, CSM and Solution are nil when the configuration does not name them.
type CortxEnv struct {
	Cfg         e2e_config.E2EConfig
	Master      cluster.Node
	Kubectl     *kubectl.Kubectl
	Health      *health.Checker
	Pods        *ha.PodLifecycle
	DataManager *datamanager.DataManager
	S3          *s3io.Client
	CSM         *csm.Client
	Solution    *solution.File
}

// NewCortxEnv builds the environment for cfg. Commands reach the master node through
// the e2e-agent when useAgent is set, otherwise over ssh.
func NewCortxEnv(ctx context.Context, cfg e2e_config.E2EConfig, useAgent bool) (*CortxEnv, error) {
	masterCfg, err := cfg.MasterNode()
	if err != nil {
		return nil, cterror.WrapException(err, cterror.InvalidConfig, "master node")
	}
	env := &CortxEnv{Cfg: cfg}
	if useAgent && !cfg.Platform.DisableE2EAgent {
		env.Master = cluster.NewAgentNode(masterCfg.Hostname)
	} else {
		env.Master = cluster.NewLogicalNode(masterCfg)
	}
	logf.Log.Info("Master node", "host", env.Master.Hostname(), "agent", useAgent)

	env.Kubectl = kubectl.New(env.Master, cfg.Platform.Namespace, cfg.CommandTimeout)
	env.Pods = ha.New(env.Kubectl, cfg.HA.PodPollSecs, cfg.HA.PodRestartTimeoutSecs)

	if cfg.CSM.Endpoint != "" {
		env.CSM = csm.New(cfg.CSM.Endpoint, cfg.CSM.Username, cfg.CSM.Password, cfg.CSM.VerifyTLS)
	}
	env.Health = &health.Checker{
		Kubectl:       env.Kubectl,
		DataPodPrefix: cfg.Platform.DataPodPrefix,
		HaxContainer:  cfg.Platform.HaxContainer,
		CSM:           env.CSM,
	}

	if env.DataManager, err = datamanager.New(cfg.MetadataDir); err != nil {
		return nil, err
	}

	if cfg.S3.AccessKey != "" {
		env.S3, err = s3io.New(ctx, s3io.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
	} else {
		logf.Log.Info("No s3 credentials configured, s3 client not created")
	}

	if cfg.SolutionFile != "" {
		if env.Solution, err = solution.Load(cfg.SolutionFile); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Recorder returns an s3 recorder writing the data manager records of user.
func (env *CortxEnv) Recorder(user string) (*s3io.Recorder, error) {
	if env.S3 == nil {
		return nil, cterror.NewException(cterror.InvalidConfig, "s3 is not configured")
	}
	return &s3io.Recorder{Client: env.S3, DM: env.DataManager, User: user}, nil
}

// Close releases the ssh connection of the master node, if any.
func (env *CortxEnv) Close() error {
	if closer, ok := env.Master.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
