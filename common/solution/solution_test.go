package solution

import (
	"path/filepath"
	"testing"

	"cortx-e2e/common/cterror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solutionYaml = `solution:
  namespace: default
  secrets:
    name: cortx-secret
  images:
    cortxcontrol: ghcr.io/seagate/cortx-control:2.0.0-latest
    cortxdata: ghcr.io/seagate/cortx-data:2.0.0-latest
  storage_sets:
  - name: storage-set-1
    durability:
      sns: 4+2+0
      dix: 1+2+0
    container_group_size: 1
    nodes:
    - ssc-vm-1
    - ssc-vm-2
    storage:
    - name: cvg-01
      type: ios
      devices:
        metadata:
        - path: /dev/sdb
          size: 5Gi
        data:
        - path: /dev/sdc
          size: 5Gi
        - path: /dev/sdd
          size: 5Gi
    - name: cvg-02
      type: ios
      devices:
        metadata:
        - path: /dev/sde
        data:
        - path: /dev/sdf
`

func TestParseAndTopology(t *testing.T) {
	f, err := Parse([]byte(solutionYaml))
	require.NoError(t, err)
	assert.Equal(t, "default", f.Solution.Namespace)
	assert.Equal(t, "storage-set-1", f.FirstStorageSet())

	k, err := f.ParityUnits("storage-set-1")
	require.NoError(t, err)
	assert.Equal(t, 2, k)

	topo := f.Topology()
	require.Len(t, topo.CVGs, 4)
	assert.Equal(t, CVGOnHost{StorageSet: "storage-set-1", Host: "ssc-vm-2", CVG: "cvg-01", Data: []string{"/dev/sdc", "/dev/sdd"}}, topo.CVGs[2])

	disks := topo.Disks()
	require.Len(t, disks, 6)
	for _, d := range disks {
		assert.NotEqual(t, "/dev/sdb", d.Device)
		assert.NotEqual(t, "/dev/sde", d.Device)
	}
	assert.Equal(t, "ssc-vm-1/cvg-01/1", disks[1].Key())
	assert.Equal(t, "/dev/sdd", disks[1].Device)
}

func TestMutateAndSave(t *testing.T) {
	f, err := Parse([]byte(solutionYaml))
	require.NoError(t, err)

	f.SetNamespace("cortx")
	f.SetImage("cortxdata", "ghcr.io/seagate/cortx-data:2.0.0-985")
	require.NoError(t, f.SetNodes("storage-set-1", []string{"node-a"}))
	require.NoError(t, f.AddNode("storage-set-1", "node-b"))
	require.NoError(t, f.AddNode("storage-set-1", "node-b"))
	require.NoError(t, f.SetDevices("storage-set-1", "cvg-03", []string{"/dev/sdg"}, []string{"/dev/sdh", "/dev/sdi"}))
	require.NoError(t, f.SetDevices("storage-set-1", "cvg-02", nil, []string{"/dev/sdz"}))

	assert.True(t, cterror.HasCode(f.SetNodes("no-set", nil), cterror.InvalidArgs))
	assert.True(t, cterror.HasCode(f.SetDevices("storage-set-1", "cvg-09", nil, nil), cterror.InvalidArgs))

	path := filepath.Join(t.TempDir(), "solution.yaml")
	require.NoError(t, f.Save(path))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cortx", g.Solution.Namespace)
	assert.Equal(t, "ghcr.io/seagate/cortx-data:2.0.0-985", g.Solution.Images["cortxdata"])
	assert.Equal(t, "ghcr.io/seagate/cortx-control:2.0.0-latest", g.Solution.Images["cortxcontrol"])
	assert.Contains(t, g.Solution.Extra, "secrets")

	ss, err := g.StorageSet("storage-set-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"node-a", "node-b"}, ss.Nodes)
	require.Len(t, ss.Storage, 3)
	assert.Equal(t, []Device{{Path: "/dev/sdz"}}, ss.Storage[1].Devices.Data)
	assert.Equal(t, CVG{Name: "cvg-03", Type: "ios", Devices: Devices{
		Metadata: []Device{{Path: "/dev/sdg"}},
		Data:     []Device{{Path: "/dev/sdh"}, {Path: "/dev/sdi"}},
	}}, ss.Storage[2])
	assert.Len(t, g.Topology().Disks(), 10)
}

func TestLayoutAndErrors(t *testing.T) {
	n, k, s, err := ParseLayout(" 8+2+1 ")
	require.NoError(t, err)
	assert.Equal(t, []int{8, 2, 1}, []int{n, k, s})

	for _, bad := range []string{"", "4+2", "4+x+0", "4+-1+0"} {
		_, _, _, err := ParseLayout(bad)
		assert.True(t, cterror.HasCode(err, cterror.InvalidConfig), bad)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, cterror.HasCode(err, cterror.MissingFile))
	_, err = Parse([]byte("solution: [unclosed"))
	assert.True(t, cterror.HasCode(err, cterror.ParseError))
}
