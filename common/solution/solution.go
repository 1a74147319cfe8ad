// Package solution reads, edits and writes the solution.yaml used to deploy
// cortx on kubernetes.
package solution

import (
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"cortx-e2e/common/cterror"

	"github.com/google/renameio"
	"gopkg.in/yaml.v2"
)

// File is the whole solution.yaml, keys this package does not model are
// kept in the inline Extra maps and written back unchanged.
type File struct {
	Solution Solution               `yaml:"solution"`
	Extra    map[string]interface{} `yaml:",inline"`
}

type Solution struct {
	Namespace   string                 `yaml:"namespace"`
	Images      map[string]string      `yaml:"images,omitempty"`
	StorageSets []StorageSet           `yaml:"storage_sets"`
	Extra       map[string]interface{} `yaml:",inline"`
}

type StorageSet struct {
	Name               string                 `yaml:"name"`
	Durability         Durability             `yaml:"durability"`
	ContainerGroupSize int                    `yaml:"container_group_size,omitempty"`
	Nodes              []string               `yaml:"nodes"`
	Storage            []CVG                  `yaml:"storage"`
	Extra              map[string]interface{} `yaml:",inline"`
}

// Durability holds the sns and dix layouts as "N+K+S".
type Durability struct {
	SNS string `yaml:"sns"`
	DIX string `yaml:"dix"`
}

// CVG is a cylinder volume group, the devices one storage container serves.
type CVG struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	Devices Devices `yaml:"devices"`
}

type Devices struct {
	Metadata []Device `yaml:"metadata"`
	Data     []Device `yaml:"data"`
}

type Device struct {
	Path string `yaml:"path"`
	Size string `yaml:"size,omitempty"`
}

func Load(path string) (*File, error) {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, cterror.WrapException(err, cterror.MissingFile, "%s", path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, cterror.WrapException(err, cterror.ParseError, "solution yaml")
	}
	return &f, nil
}

func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Save writes f to path, replacing the file atomically.
func (f *File) Save(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}

func (f *File) SetNamespace(ns string) {
	f.Solution.Namespace = ns
}

func (f *File) SetImage(name, ref string) {
	if f.Solution.Images == nil {
		f.Solution.Images = map[string]string{}
	}
	f.Solution.Images[name] = ref
}

func (f *File) StorageSet(name string) (*StorageSet, error) {
	for ix := range f.Solution.StorageSets {
		if f.Solution.StorageSets[ix].Name == name {
			return &f.Solution.StorageSets[ix], nil
		}
	}
	return nil, cterror.NewException(cterror.InvalidArgs, "storage set %q not in solution", name)
}

// FirstStorageSet returns the name of the first storage set, "" if there is none.
func (f *File) FirstStorageSet() string {
	if len(f.Solution.StorageSets) == 0 {
		return ""
	}
	return f.Solution.StorageSets[0].Name
}

func (f *File) SetNodes(set string, nodes []string) error {
	ss, err := f.StorageSet(set)
	if err != nil {
		return err
	}
	ss.Nodes = append([]string(nil), nodes...)
	return nil
}

// AddNode appends node to set unless already listed.
func (f *File) AddNode(set, node string) error {
	ss, err := f.StorageSet(set)
	if err != nil {
		return err
	}
	for _, n := range ss.Nodes {
		if n == node {
			return nil
		}
	}
	ss.Nodes = append(ss.Nodes, node)
	return nil
}

func devices(paths []string) []Device {
	devs := make([]Device, 0, len(paths))
	for _, p := range paths {
		devs = append(devs, Device{Path: p})
	}
	return devs
}

// SetDevices replaces the devices of cvg in set, the cvg is created if missing.
func (f *File) SetDevices(set, cvg string, metadata, data []string) error {
	if len(data) == 0 {
		return cterror.NewException(cterror.InvalidArgs, "cvg %s needs at least one data device", cvg)
	}
	ss, err := f.StorageSet(set)
	if err != nil {
		return err
	}
	devs := Devices{Metadata: devices(metadata), Data: devices(data)}
	for ix := range ss.Storage {
		if ss.Storage[ix].Name == cvg {
			ss.Storage[ix].Devices = devs
			return nil
		}
	}
	ss.Storage = append(ss.Storage, CVG{Name: cvg, Type: "ios", Devices: devs})
	return nil
}

// ParseLayout splits a "N+K+S" layout into data, parity and spare units.
func ParseLayout(layout string) (n, k, s int, err error) {
	parts := strings.Split(strings.TrimSpace(layout), "+")
	if len(parts) != 3 {
		return 0, 0, 0, cterror.NewException(cterror.InvalidConfig, "durability layout %q", layout)
	}
	var units [3]int
	for ix, p := range parts {
		units[ix], err = strconv.Atoi(strings.TrimSpace(p))
		if err != nil || units[ix] < 0 {
			return 0, 0, 0, cterror.NewException(cterror.InvalidConfig, "durability layout %q", layout)
		}
	}
	return units[0], units[1], units[2], nil
}

// ParityUnits is K of the sns layout of set, the number of disks that can
// fail without losing data.
func (f *File) ParityUnits(set string) (int, error) {
	ss, err := f.StorageSet(set)
	if err != nil {
		return 0, err
	}
	_, k, _, err := ParseLayout(ss.Durability.SNS)
	return k, err
}
