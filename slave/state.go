package slave

// AcquisitionState is one of the three states the Slave cycles through
// while trying to lock onto the Master's frame boundary (spec §4.5).
type AcquisitionState int

const (
	Scanning AcquisitionState = iota
	PartialLock
	FullLock
)

func (s AcquisitionState) String() string {
	switch s {
	case Scanning:
		return "SCANNING"
	case PartialLock:
		return "PARTIAL_LOCK"
	case FullLock:
		return "FULL_LOCK"
	default:
		return "UNKNOWN"
	}
}

// failedBeforeScanning is the number of receive failures, counted from any
// state, that forces a return to SCANNING. A success does not reset the
// count; only reaching this threshold does.
const failedBeforeScanning = 50

// partialLockCounterLimit is the value partialLockCount must exceed, on a
// success in PARTIAL_LOCK, for the FSM to regress to SCANNING instead of
// promoting to FULL_LOCK.
const partialLockCounterLimit = 10

// fsm tracks the Slave's acquisition state across receive passes.
type fsm struct {
	state            AcquisitionState
	partialLockCount uint8
	failedCount      uint8
}

// update runs the FSM transition for one frame's receive outcome (spec
// §4.5). onScanSuccess is called exactly when a SCANNING→PARTIAL_LOCK
// transition happens, so the caller can advance the channel index and
// resume listening the way update_scanning does inline in the original
// source.
func (f *fsm) update(isSuccess bool, onScanSuccess func()) {
	if isSuccess {
		switch f.state {
		case Scanning:
			onScanSuccess()
			f.state = PartialLock
			f.partialLockCount = 0
		case PartialLock:
			f.partialLockCount++
			if f.partialLockCount > partialLockCounterLimit {
				f.state = Scanning
			} else {
				// The original source's "else if (isSuccess)" is
				// unreachable dead code since isSuccess is already true
				// here; the net effect it implies — promote on the very
				// next success — is what this branch does.
				f.state = FullLock
			}
		case FullLock:
			// no success-side transition out of FULL_LOCK
		}
	} else {
		f.failedCount++
	}

	if f.failedCount >= failedBeforeScanning {
		f.failedCount = 0
		f.state = Scanning
	}
}
