// Package hctl builds hctl command lines and decodes `hctl status --json`.
package hctl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cortx-e2e/common"
	"cortx-e2e/common/cterror"
)

const StatusJSONCmd = "hctl status --json"

// ServiceStarted is the status hctl reports for a healthy service.
const ServiceStarted = "started"

type Pool struct {
	Fid  string `json:"fid"`
	Name string `json:"name"`
}

type Profile struct {
	Fid   string   `json:"fid"`
	Name  string   `json:"name"`
	Pools []string `json:"pools"`
}

type FsStats struct {
	FreeSeg    uint64 `json:"fs_free_seg"`
	TotalSeg   uint64 `json:"fs_total_seg"`
	FreeDisk   uint64 `json:"fs_free_disk"`
	AvailDisk  uint64 `json:"fs_avail_disk"`
	TotalDisk  uint64 `json:"fs_total_disk"`
	SvcTotal   uint32 `json:"fs_svc_total"`
	SvcReplied uint32 `json:"fs_svc_replied"`
}

type Filesystem struct {
	Stats     FsStats `json:"stats"`
	Timestamp float64 `json:"timestamp"`
	Date      string  `json:"date"`
}

type Service struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Fid    string `json:"fid"`
}

type Node struct {
	Name string    `json:"name"`
	Svcs []Service `json:"svcs"`
}

// ByteCount is the amount of data per state of its parity group.
type ByteCount struct {
	Critical uint64 `json:"critical"`
	Damaged  uint64 `json:"damaged"`
	Degraded uint64 `json:"degraded"`
	Healthy  uint64 `json:"healthy"`
}

type Status struct {
	Pools      []Pool     `json:"pools"`
	Profiles   []Profile  `json:"profiles"`
	Filesystem Filesystem `json:"filesystem"`
	Nodes      []Node     `json:"nodes"`
	ByteCount  ByteCount  `json:"bytecount"`
}

// ParseStatus decodes the output of StatusJSONCmd. Anything printed before
// the json document, such as kubectl warnings, is skipped.
func ParseStatus(out []byte) (*Status, error) {
	text := string(out)
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, cterror.NewException(cterror.ParseError, "no json in hctl status output %q", strings.TrimSpace(text))
	}
	var st Status
	if err := json.Unmarshal([]byte(text[start:]), &st); err != nil {
		return nil, cterror.WrapException(err, cterror.ParseError, "hctl status")
	}
	return &st, nil
}

// OfflineServices returns "<node>:<service>" for every service not started, sorted.
func (s *Status) OfflineServices() []string {
	var offline []string
	for _, n := range s.Nodes {
		for _, svc := range n.Svcs {
			if svc.Status != ServiceStarted {
				offline = append(offline, n.Name+":"+svc.Name)
			}
		}
	}
	sort.Strings(offline)
	return offline
}

func (s *Status) AllServicesStarted() bool {
	if len(s.Nodes) == 0 {
		return false
	}
	return len(s.OfflineServices()) == 0
}

// DriveStateCmd sets the state of device on node.
func DriveStateCmd(node, device string, state common.DiskState) (string, error) {
	if !common.IsValidDiskState(state) {
		return "", cterror.NewException(cterror.InvalidArgs, "disk state %q", state)
	}
	if node == "" || device == "" {
		return "", cterror.NewException(cterror.InvalidArgs, "node %q device %q", node, device)
	}
	arg := fmt.Sprintf(`{"node":"%s","source_type":"drive","device":"%s","state":"%s"}`, node, device, state)
	return "hctl drive-state --json '" + arg + "'", nil
}

func snsCmd(op string, action common.SnsAction, e cterror.Error) (string, error) {
	if !common.IsValidSnsAction(action) {
		return "", cterror.NewException(e, "%s action %q", op, action)
	}
	return fmt.Sprintf("hctl %s %s", op, action), nil
}

func RepairCmd(action common.SnsAction) (string, error) {
	return snsCmd("repair", action, cterror.SnsRepairError)
}

func RebalanceCmd(action common.SnsAction) (string, error) {
	return snsCmd("rebalance", action, cterror.SnsRebalanceErr)
}
