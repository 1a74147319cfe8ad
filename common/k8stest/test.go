package k8stest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/loki"
	"cortx-e2e/common/reporter"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/envtest"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

type TestEnvironment struct {
	Cfg       *rest.Config
	K8sClient client.Client
	KubeInt   kubernetes.Interface
	TestEnv   *envtest.Environment
	Cortx     *CortxEnv
}

var gTestEnv TestEnvironment

// InitTesting initialise testing and setup class name + report filename.
func InitTesting(t *testing.T, classname string, reportname string) {
	RegisterFailHandler(Fail)
	fmt.Printf("Cortx namespace is \"%s\"\n", common.NSCortx())
	RunSpecsWithDefaultAndCustomReporters(t, classname, reporter.GetReporters(reportname))
	loki.SendLokiMarker("Start of test " + classname)
}

// SkipUnlessConfigured skips the suite when no configuration file is named.
func SkipUnlessConfigured(t *testing.T) {
	if _, ok := os.LookupEnv("e2e_config_file"); !ok {
		t.Skip("e2e_config_file is not set")
	}
}

func SetupTestEnv() error {
	logf.SetLogger(zap.New(zap.UseDevMode(true), zap.WriteTo(GinkgoWriter)))
	fmt.Printf("Cortx namespace is \"%s\"\n", common.NSCortx())

	By("bootstrapping test environment")
	useCluster := true
	testEnv := &envtest.Environment{
		UseExistingCluster:       &useCluster,
		AttachControlPlaneOutput: true,
	}

	cfg, err := testEnv.Start()
	if err != nil {
		return err
	}

	k8sClient, err := client.New(cfg, client.Options{Scheme: scheme.Scheme})
	if err != nil {
		return err
	}

	kubeInt, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return err
	}

	gTestEnv = TestEnvironment{
		Cfg:       cfg,
		K8sClient: k8sClient,
		KubeInt:   kubeInt,
		TestEnv:   testEnv,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cortx, err := NewCortxEnv(ctx, e2e_config.GetConfig(), E2EAgentReady())
	if err != nil {
		return err
	}
	gTestEnv.Cortx = cortx
	return nil
}

// Cortx returns the cortx environment created by SetupTestEnv.
func Cortx() *CortxEnv {
	return gTestEnv.Cortx
}

func TeardownTestEnvNoCleanup() error {
	if gTestEnv.Cortx != nil {
		_ = gTestEnv.Cortx.Close()
	}
	return gTestEnv.TestEnv.Stop()
}

func TeardownTestEnv() error {
	AfterSuiteCleanup()
	return TeardownTestEnvNoCleanup()
}

// AfterSuiteCleanup  placeholder function for now
// To aid postmortem analysis for the most common CI use case
// namely cluster is retained on failure, we do nothing
func AfterSuiteCleanup() {
	logf.Log.Info("AfterSuiteCleanup")
}

// ResourceCheck  Fit for purpose checks
// - k8s nodes are ready
// - cortx pods are running without restarts
// - hctl reports every service started
func ResourceCheck() error {
	var accErr error

	ready, err := AreNodesReady()
	if err != nil {
		accErr = MakeAccumulatedError(accErr, err)
	} else if !ready {
		accErr = MakeAccumulatedError(accErr, fmt.Errorf("not all nodes are ready"))
	}

	accErr = MakeAccumulatedError(accErr, CheckPodsHealth(common.NSCortx()))

	if gTestEnv.Cortx != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		problems, err := gTestEnv.Cortx.Health.Problems(ctx)
		if err != nil {
			accErr = MakeAccumulatedError(accErr, err)
		}
		for _, problem := range problems {
			accErr = MakeAccumulatedError(accErr, fmt.Errorf("%s", problem))
		}
	}
	return accErr
}

//BeforeEachCheck asserts that the cluster is fit for the test to run
func BeforeEachCheck() error {
	logf.Log.Info("BeforeEachCheck")
	err := ResourceCheck()
	if err != nil {
		logf.Log.Info("BeforeEachCheck failed", "error", err)
		err = fmt.Errorf("not running test case, cortx cluster is not healthy!!!\n%v", err)
	}
	return err
}

// AfterEachCheck asserts that the cluster is healthy after the test.
func AfterEachCheck() error {
	logf.Log.Info("AfterEachCheck")
	err := ResourceCheck()
	if err != nil {
		logf.Log.Info("AfterEachCheck failed", "error", err)
	}
	return err
}
