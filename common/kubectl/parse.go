package kubectl

import (
	"regexp"
	"strconv"
	"strings"
)

// PodInfo is one row of `kubectl get pods -o wide`
type PodInfo struct {
	Name     string
	Ready    string
	Status   string
	Restarts int
	IP       string
	Node     string
}

// DeploymentInfo is one row of `kubectl get deployments`
type DeploymentInfo struct {
	Name      string
	Ready     int
	Desired   int
	UpToDate  int
	Available int
}

// ReplicaSetInfo is one row of `kubectl get replicasets`
type ReplicaSetInfo struct {
	Name    string
	Desired int
	Current int
	Ready   int
}

// header columns are separated by at least two spaces, names may contain one
var columnRe = regexp.MustCompile(`\S+(?: \S+)*`)

// parseTable turns kubectl tabular output into one map per row keyed by the
// header column name. Cells are cut at the header column offsets, so a cell
// holding spaces such as "2 (5m ago)" survives.
func parseTable(text string) []map[string]string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	hdr := -1
	for ix, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "NAME") {
			hdr = ix
			break
		}
	}
	if hdr < 0 {
		return nil
	}
	header := lines[hdr]
	locs := columnRe.FindAllStringIndex(header, -1)
	var rows []map[string]string
	for _, line := range lines[hdr+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := make(map[string]string, len(locs))
		for ix, loc := range locs {
			start := loc[0]
			end := len(line)
			if ix+1 < len(locs) {
				end = locs[ix+1][0]
			}
			if start >= len(line) {
				break
			}
			if end > len(line) {
				end = len(line)
			}
			row[header[loc[0]:loc[1]]] = strings.TrimSpace(line[start:end])
		}
		rows = append(rows, row)
	}
	return rows
}

// leadingInt parses the integer prefix of s, 0 if there is none.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, _ := strconv.Atoi(s[:end])
	return v
}

// ratio parses "ready/desired".
func ratio(s string) (int, int) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return leadingInt(s), 0
	}
	return leadingInt(parts[0]), leadingInt(parts[1])
}

func ParsePods(text string) []PodInfo {
	var pods []PodInfo
	for _, row := range parseTable(text) {
		pods = append(pods, PodInfo{
			Name:     row["NAME"],
			Ready:    row["READY"],
			Status:   row["STATUS"],
			Restarts: leadingInt(row["RESTARTS"]),
			IP:       row["IP"],
			Node:     row["NODE"],
		})
	}
	return pods
}

func ParseDeployments(text string) []DeploymentInfo {
	var deps []DeploymentInfo
	for _, row := range parseTable(text) {
		ready, desired := ratio(row["READY"])
		deps = append(deps, DeploymentInfo{
			Name:      row["NAME"],
			Ready:     ready,
			Desired:   desired,
			UpToDate:  leadingInt(row["UP-TO-DATE"]),
			Available: leadingInt(row["AVAILABLE"]),
		})
	}
	return deps
}

func ParseReplicaSets(text string) []ReplicaSetInfo {
	var sets []ReplicaSetInfo
	for _, row := range parseTable(text) {
		sets = append(sets, ReplicaSetInfo{
			Name:    row["NAME"],
			Desired: leadingInt(row["DESIRED"]),
			Current: leadingInt(row["CURRENT"]),
			Ready:   leadingInt(row["READY"]),
		})
	}
	return sets
}

// MatchDeployment returns the deployment whose name is the longest prefix of pod.
func MatchDeployment(deps []DeploymentInfo, pod string) (string, bool) {
	best := ""
	for _, d := range deps {
		if strings.HasPrefix(pod, d.Name) && len(d.Name) > len(best) {
			best = d.Name
		}
	}
	return best, best != ""
}

// IsRunning is true for a Running pod with all containers ready.
func (p PodInfo) IsRunning() bool {
	if p.Status != "Running" {
		return false
	}
	ready, total := ratio(p.Ready)
	return total > 0 && ready == total
}
