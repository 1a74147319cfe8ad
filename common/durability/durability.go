// Package durability injects disk failures into the cluster and drives the
// sns repair and rebalance that recover from them.
package durability

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/cterror"
	"cortx-e2e/common/hctl"
	"cortx-e2e/common/health"
	"cortx-e2e/common/solution"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type DiskFailureRecoveryLib struct {
	Health   *health.Checker
	Topology solution.Topology

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a library picking disks with a generator seeded by seed, so a
// run can be repeated.
func New(h *health.Checker, topo solution.Topology, seed int64) *DiskFailureRecoveryLib {
	return &DiskFailureRecoveryLib{Health: h, Topology: topo, rnd: rand.New(rand.NewSource(seed))}
}

func (l *DiskFailureRecoveryLib) shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rnd.Shuffle(n, swap)
}

func (l *DiskFailureRecoveryLib) intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// SelectDisks picks count distinct data disks according to policy.
func (l *DiskFailureRecoveryLib) SelectDisks(count int, policy common.DiskFailPolicy) ([]solution.DiskLocation, error) {
	if count <= 0 {
		return nil, cterror.NewException(cterror.InvalidArgs, "disk count %d", count)
	}
	var cvgs []solution.CVGOnHost
	for _, c := range l.Topology.CVGs {
		if len(c.Data) != 0 {
			cvgs = append(cvgs, c)
		}
	}

	switch policy {
	case common.OnDiffCVG:
		if count > len(cvgs) {
			return nil, cterror.NewException(cterror.DiskSelectError, "%d disks on different cvgs, only %d cvgs", count, len(cvgs))
		}
		l.shuffle(len(cvgs), func(i, j int) { cvgs[i], cvgs[j] = cvgs[j], cvgs[i] })
		var disks []solution.DiskLocation
		for _, c := range cvgs[:count] {
			candidates := c.Disks()
			disks = append(disks, candidates[l.intn(len(candidates))])
		}
		return disks, nil

	case common.OnSameCVG:
		var fit []solution.CVGOnHost
		for _, c := range cvgs {
			if len(c.Data) >= count {
				fit = append(fit, c)
			}
		}
		if len(fit) == 0 {
			return nil, cterror.NewException(cterror.DiskSelectError, "no cvg has %d data disks", count)
		}
		disks := fit[l.intn(len(fit))].Disks()
		l.shuffle(len(disks), func(i, j int) { disks[i], disks[j] = disks[j], disks[i] })
		return disks[:count], nil

	default:
		disks := l.Topology.Disks()
		if count > len(disks) {
			return nil, cterror.NewException(cterror.DiskSelectError, "%d disks requested, only %d data disks", count, len(disks))
		}
		l.shuffle(len(disks), func(i, j int) { disks[i], disks[j] = disks[j], disks[i] })
		return disks[:count], nil
	}
}

func (l *DiskFailureRecoveryLib) hostPods(ctx context.Context) (map[string]string, error) {
	return l.Health.Kubectl.HostPodMap(ctx, l.Health.DataPodPrefix)
}

func (l *DiskFailureRecoveryLib) changeDiskState(ctx context.Context, pod string, disk solution.DiskLocation, state common.DiskState) error {
	cmd, err := hctl.DriveStateCmd(disk.Host, disk.Device, state)
	if err != nil {
		return err
	}
	logf.Log.Info("Changing disk state", "disk", disk.Key(), "device", disk.Device, "state", state, "pod", pod)
	if _, err := l.Health.Kubectl.ExecInPod(ctx, pod, l.Health.HaxContainer, cmd); err != nil {
		return cterror.WrapException(err, cterror.DiskStateError, "%s to %s", disk.Key(), state)
	}
	return nil
}

// ChangeDiskState sets disk to state through the data pod of its host.
func (l *DiskFailureRecoveryLib) ChangeDiskState(ctx context.Context, disk solution.DiskLocation, state common.DiskState) error {
	pods, err := l.hostPods(ctx)
	if err != nil {
		return err
	}
	pod, ok := pods[disk.Host]
	if !ok {
		return cterror.NewException(cterror.PodNotFound, "no data pod on host %s", disk.Host)
	}
	return l.changeDiskState(ctx, pod, disk, state)
}

// FailDisk fails count disks picked by policy. The disks failed before an
// error are returned with it, keyed by DiskLocation.Key.
func (l *DiskFailureRecoveryLib) FailDisk(ctx context.Context, count int, policy common.DiskFailPolicy) (map[string]solution.DiskLocation, error) {
	disks, err := l.SelectDisks(count, policy)
	if err != nil {
		return nil, err
	}
	pods, err := l.hostPods(ctx)
	if err != nil {
		return nil, err
	}
	failed := make(map[string]solution.DiskLocation, len(disks))
	for _, d := range disks {
		pod, ok := pods[d.Host]
		if !ok {
			return failed, cterror.NewException(cterror.PodNotFound, "no data pod on host %s", d.Host)
		}
		if err := l.changeDiskState(ctx, pod, d, common.DiskFailed); err != nil {
			return failed, err
		}
		failed[d.Key()] = d
	}
	logf.Log.Info("Failed disks", "policy", policy.String(), "disks", Keys(failed))
	return failed, nil
}

// SetDisksState moves every disk of disks to state, stopping at the first error.
func (l *DiskFailureRecoveryLib) SetDisksState(ctx context.Context, disks map[string]solution.DiskLocation, state common.DiskState) error {
	pods, err := l.hostPods(ctx)
	if err != nil {
		return err
	}
	for _, key := range Keys(disks) {
		d := disks[key]
		pod, ok := pods[d.Host]
		if !ok {
			return cterror.NewException(cterror.PodNotFound, "no data pod on host %s", d.Host)
		}
		if err := l.changeDiskState(ctx, pod, d, state); err != nil {
			return err
		}
	}
	return nil
}

func (l *DiskFailureRecoveryLib) sns(ctx context.Context, cmd string, e cterror.Error) (string, error) {
	pods, err := l.Health.Kubectl.PodNamesWithPrefix(ctx, l.Health.DataPodPrefix)
	if err != nil {
		return "", err
	}
	if len(pods) == 0 {
		return "", cterror.NewException(cterror.PodNotFound, "no pod with prefix %s", l.Health.DataPodPrefix)
	}
	logf.Log.Info("SNS", "cmd", cmd, "pod", pods[0])
	out, err := l.Health.Kubectl.ExecInPod(ctx, pods[0], l.Health.HaxContainer, cmd)
	if err != nil {
		return string(out), cterror.WrapException(err, e, "%s", cmd)
	}
	return string(out), nil
}

// SNSRepair issues the repair action and returns its output. Completion is
// not awaited, poll the byte counts for that.
func (l *DiskFailureRecoveryLib) SNSRepair(ctx context.Context, action common.SnsAction) (string, error) {
	cmd, err := hctl.RepairCmd(action)
	if err != nil {
		return "", err
	}
	return l.sns(ctx, cmd, cterror.SnsRepairError)
}

func (l *DiskFailureRecoveryLib) SNSRebalance(ctx context.Context, action common.SnsAction) (string, error) {
	cmd, err := hctl.RebalanceCmd(action)
	if err != nil {
		return "", err
	}
	return l.sns(ctx, cmd, cterror.SnsRebalanceErr)
}

// PollByteCount samples the byte counts every interval until cond holds,
// at most attempts times.
func (l *DiskFailureRecoveryLib) PollByteCount(ctx context.Context, cond func(hctl.ByteCount) bool, interval time.Duration, attempts int) (hctl.ByteCount, error) {
	var bc hctl.ByteCount
	for ix := 0; ix < attempts; ix++ {
		var err error
		bc, err = l.Health.GetByteCount(ctx)
		if err != nil {
			logf.Log.Info("Byte count unavailable", "attempt", ix, "error", err)
		} else if cond(bc) {
			return bc, nil
		}
		if ix+1 < attempts {
			select {
			case <-ctx.Done():
				return bc, cterror.WrapException(ctx.Err(), cterror.Timeout, "polling byte count")
			case <-time.After(interval):
			}
		}
	}
	return bc, cterror.NewException(cterror.Timeout, "byte count %+v after %d polls", bc, attempts)
}

// NoDegradedData holds once repair has reconstructed all data.
func NoDegradedData(bc hctl.ByteCount) bool {
	return bc.Degraded == 0 && bc.Critical == 0 && bc.Damaged == 0
}

// HasDegradedData holds once the cluster noticed the failed disks.
func HasDegradedData(bc hctl.ByteCount) bool {
	return bc.Degraded != 0 || bc.Critical != 0
}

const restoreTimeout = 10 * time.Minute

// RestoreOnFailure routes every failure of a step to a routine that sets the
// disks of *failed online again, as long as the step failed any disk. The
// routine hands back the original error, so the step still fails.
func (l *DiskFailureRecoveryLib) RestoreOnFailure(failed *map[string]solution.DiskLocation, fc cterror.FailContext) cterror.FailOn {
	return cterror.FailOn{
		Match: func(err error) bool {
			return len(*failed) > 0
		},
		Resolve: func() (cterror.FailContext, error) {
			resolved := fc
			resolved.Values = map[string]string{}
			for k, v := range fc.Values {
				resolved.Values[k] = v
			}
			resolved.Values["disks"] = strings.Join(Keys(*failed), ",")
			return resolved, nil
		},
		Routine: func(err error, fc cterror.FailContext) error {
			logf.Log.Info("Restoring disks", "context", fc.String(), "disks", fc.Values["disks"], "error", err)
			ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
			defer cancel()
			if rerr := l.SetDisksState(ctx, *failed, common.DiskOnline); rerr != nil {
				return rerr
			}
			return err
		},
	}
}

// Keys returns the keys of disks sorted.
func Keys(disks map[string]solution.DiskLocation) []string {
	keys := make([]string, 0, len(disks))
	for k := range disks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
