package common

// DiskFailPolicy selects how disks are picked for failure.
type DiskFailPolicy string

const (
	OnDiffCVG DiskFailPolicy = "on_diff_cvg"
	OnSameCVG DiskFailPolicy = "on_same_cvg"
	Random    DiskFailPolicy = "random"
)

func (p DiskFailPolicy) String() string {
	switch p {
	case OnDiffCVG, OnSameCVG:
		return string(p)
	default:
		return string(Random)
	}
}

// DiskState is a state accepted by hctl drive-state.
type DiskState string

const (
	DiskFailed    DiskState = "failed"
	DiskOffline   DiskState = "offline"
	DiskOnline    DiskState = "online"
	DiskRepair    DiskState = "repair"
	DiskRepaired  DiskState = "repaired"
	DiskRebalance DiskState = "rebalance"
)

// SnsAction is an action understood by hctl repair and hctl rebalance.
type SnsAction string

const (
	SnsStart  SnsAction = "start"
	SnsStop   SnsAction = "stop"
	SnsPause  SnsAction = "pause"
	SnsResume SnsAction = "resume"
	SnsStatus SnsAction = "status"
)
