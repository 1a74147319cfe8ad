package e2e_config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
configName: unit
platform:
  namespace: cortx-test
metadataDir: /var/tmp/md
nodes:
  - hostname: ssc-vm-1
    username: root
    password: seagate
  - hostname: ssc-vm-2
    username: root
    password: seagate
    master: true
s3:
  endpoint: http://10.0.0.1:30080
  accessKey: AKIA
  secretKey: secret
helm:
  chart: ./cortx-cloud-helm-pkg/cortx
  values:
    cortxdata.replicas: "3"
durability:
  diskFailPolicy: on_diff_cvg
  disksToFail: 2
`

func writeConfig(t *testing.T, content string) string {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "unit", cfg.ConfigName)
	assert.Equal(t, "cortx-test", cfg.Platform.Namespace)
	assert.Equal(t, "cortx-data", cfg.Platform.DataPodPrefix)
	assert.Equal(t, "cortx-hax", cfg.Platform.HaxContainer)
	assert.Equal(t, "/var/tmp/md", cfg.MetadataDir)
	assert.Equal(t, 600, cfg.CommandTimeout)
	assert.Equal(t, "http://10.0.0.1:30080", cfg.S3.Endpoint)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, "on_diff_cvg", cfg.Durability.DiskFailPolicy)
	assert.Equal(t, 2, cfg.Durability.DisksToFail)
	assert.Equal(t, 60, cfg.Durability.RepairDelaySecs)
	assert.Equal(t, "60s", cfg.HA.IODuration)
	assert.Len(t, cfg.Nodes, 2)
	assert.Equal(t, "cortx", cfg.Helm.Release)
	assert.Equal(t, "./cortx-cloud-helm-pkg/cortx", cfg.Helm.Chart)
	assert.Equal(t, "3", cfg.Helm.Values["cortxdata.replicas"])
	assert.Equal(t, 1800, cfg.Helm.InstallTimeoutSecs)
}

func TestMasterNode(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	master, err := cfg.MasterNode()
	require.NoError(t, err)
	assert.Equal(t, "ssc-vm-2", master.Hostname)

	cfg.Nodes[1].Master = false
	master, err = cfg.MasterNode()
	require.NoError(t, err)
	assert.Equal(t, "ssc-vm-1", master.Hostname)

	cfg.Nodes = nil
	_, err = cfg.MasterNode()
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestResolveConfigFile(t *testing.T) {
	assert.Equal(t, "/etc/e2e/cfg.yaml", ResolveConfigFile("/root/e2e", "/etc/e2e/cfg.yaml"))
	assert.Equal(t, "/root/e2e/configurations/ci.yaml", ResolveConfigFile("/root/e2e", "ci.yaml"))
}
