package common

// IsValidDiskState reports whether state is accepted by hctl drive-state.
func IsValidDiskState(state DiskState) bool {
	switch state {
	case DiskFailed, DiskOffline, DiskOnline, DiskRepair, DiskRepaired, DiskRebalance:
		return true
	}
	return false
}

// IsValidSnsAction reports whether action is accepted by hctl repair/rebalance.
func IsValidSnsAction(action SnsAction) bool {
	switch action {
	case SnsStart, SnsStop, SnsPause, SnsResume, SnsStatus:
		return true
	}
	return false
}
