package solution

import (
	"fmt"
)

// DiskLocation identifies one data device of a cvg on a host.
type DiskLocation struct {
	Host   string
	CVG    string
	Index  int
	Device string
}

// Key is "<host>/<cvg>/<device-index>".
func (d DiskLocation) Key() string {
	return fmt.Sprintf("%s/%s/%d", d.Host, d.CVG, d.Index)
}

// CVGOnHost is a cvg as deployed on one host. Every node of a storage set
// carries every cvg of the set.
type CVGOnHost struct {
	StorageSet string
	Host       string
	CVG        string
	Data       []string
}

func (c CVGOnHost) Key() string {
	return c.Host + "/" + c.CVG
}

func (c CVGOnHost) Disks() []DiskLocation {
	disks := make([]DiskLocation, 0, len(c.Data))
	for ix, dev := range c.Data {
		disks = append(disks, DiskLocation{Host: c.Host, CVG: c.CVG, Index: ix, Device: dev})
	}
	return disks
}

type Topology struct {
	CVGs []CVGOnHost
}

// Topology lists the cvgs of every node of every storage set. Metadata
// devices are left out, only data devices are candidates for failure.
func (f *File) Topology() Topology {
	var t Topology
	for _, ss := range f.Solution.StorageSets {
		for _, node := range ss.Nodes {
			for _, cvg := range ss.Storage {
				c := CVGOnHost{StorageSet: ss.Name, Host: node, CVG: cvg.Name}
				for _, d := range cvg.Devices.Data {
					c.Data = append(c.Data, d.Path)
				}
				t.CVGs = append(t.CVGs, c)
			}
		}
	}
	return t
}

func (t Topology) Disks() []DiskLocation {
	var disks []DiskLocation
	for _, c := range t.CVGs {
		disks = append(disks, c.Disks()...)
	}
	return disks
}
