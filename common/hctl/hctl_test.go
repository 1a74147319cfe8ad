package hctl

import (
	"testing"

	"cortx-e2e/common"
	"cortx-e2e/common/cterror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusJSON = `Defaulted container "cortx-hax" out of: cortx-hax, cortx-motr-io
{
  "pools": [{"fid": "0x6f00000000000001:0x5a", "name": "storage-set-1__sns"}],
  "profiles": [{"fid": "0x7000000000000001:0x85", "name": "Profile_the_pool", "pools": ["storage-set-1__sns"]}],
  "filesystem": {
    "stats": {"fs_free_seg": 1000, "fs_total_seg": 2000, "fs_free_disk": 5000, "fs_avail_disk": 4000, "fs_total_disk": 9000, "fs_svc_total": 6, "fs_svc_replied": 6},
    "timestamp": 1660000000.5,
    "date": "2022-08-08T23:06:40"
  },
  "nodes": [
    {"name": "cortx-data-headless-svc-ssc-vm-1", "svcs": [
      {"name": "hax", "status": "started", "fid": "0x7200000000000001:0x6"},
      {"name": "ioservice", "status": "started", "fid": "0x7200000000000001:0x9"}
    ]},
    {"name": "cortx-data-headless-svc-ssc-vm-2", "svcs": [
      {"name": "ioservice", "status": "offline", "fid": "0x7200000000000001:0x19"},
      {"name": "confd", "status": "unknown", "fid": "0x7200000000000001:0x16"}
    ]}
  ],
  "bytecount": {"critical": 0, "damaged": 0, "degraded": 4096, "healthy": 8192}
}`

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus([]byte(statusJSON))
	require.NoError(t, err)
	require.Len(t, st.Pools, 1)
	assert.Equal(t, "storage-set-1__sns", st.Pools[0].Name)
	assert.Equal(t, []string{"storage-set-1__sns"}, st.Profiles[0].Pools)
	assert.Equal(t, uint64(9000), st.Filesystem.Stats.TotalDisk)
	assert.Equal(t, ByteCount{Degraded: 4096, Healthy: 8192}, st.ByteCount)
	assert.False(t, st.AllServicesStarted())
	assert.Equal(t, []string{
		"cortx-data-headless-svc-ssc-vm-2:confd",
		"cortx-data-headless-svc-ssc-vm-2:ioservice",
	}, st.OfflineServices())
}

func TestParseStatusErrors(t *testing.T) {
	_, err := ParseStatus([]byte("error: pod not found"))
	assert.True(t, cterror.HasCode(err, cterror.ParseError))
	_, err = ParseStatus([]byte(`{"nodes": [`))
	assert.True(t, cterror.HasCode(err, cterror.ParseError))

	st, err := ParseStatus([]byte(`{"nodes": []}`))
	require.NoError(t, err)
	assert.False(t, st.AllServicesStarted())
}

func TestCommands(t *testing.T) {
	cmd, err := DriveStateCmd("ssc-vm-1", "/dev/sdc", common.DiskFailed)
	require.NoError(t, err)
	assert.Equal(t, `hctl drive-state --json '{"node":"ssc-vm-1","source_type":"drive","device":"/dev/sdc","state":"failed"}'`, cmd)

	_, err = DriveStateCmd("ssc-vm-1", "/dev/sdc", common.DiskState("broken"))
	assert.True(t, cterror.HasCode(err, cterror.InvalidArgs))
	_, err = DriveStateCmd("", "/dev/sdc", common.DiskOnline)
	assert.True(t, cterror.HasCode(err, cterror.InvalidArgs))

	cmd, err = RepairCmd(common.SnsStart)
	require.NoError(t, err)
	assert.Equal(t, "hctl repair start", cmd)
	cmd, err = RebalanceCmd(common.SnsStatus)
	require.NoError(t, err)
	assert.Equal(t, "hctl rebalance status", cmd)

	_, err = RepairCmd("restart")
	assert.True(t, cterror.HasCode(err, cterror.SnsRepairError))
	_, err = RebalanceCmd("")
	assert.True(t, cterror.HasCode(err, cterror.SnsRebalanceErr))
}
