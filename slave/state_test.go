package slave

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFSM_ScanningPromotesOnTwoConsecutiveSuccesses(t *testing.T) {
	f := &fsm{}
	scanHits := 0

	f.update(true, func() { scanHits++ })
	assert.Equal(t, PartialLock, f.state, "after first success")
	assert.Equal(t, 1, scanHits, "onScanSuccess call count")

	f.update(true, func() { scanHits++ })
	assert.Equal(t, FullLock, f.state, "after second consecutive success")
	assert.Equal(t, 1, scanHits, "onScanSuccess must not fire again on the PARTIAL_LOCK success")
}

func TestFSM_FiftyConsecutiveFailuresForceScanningFromFullLock(t *testing.T) {
	f := &fsm{state: FullLock}
	for i := 0; i < failedBeforeScanning-1; i++ {
		f.update(false, nil)
		assert.Equalf(t, FullLock, f.state, "regressed out of FULL_LOCK after only %d failures", i+1)
	}
	f.update(false, nil)
	assert.Equal(t, Scanning, f.state)
}

func TestFSM_FailureCounterSurvivesAnInterveningSuccess(t *testing.T) {
	f := &fsm{state: FullLock}
	for i := 0; i < failedBeforeScanning-1; i++ {
		f.update(false, nil)
	}
	f.update(true, func() {})
	assert.Equal(t, FullLock, f.state, "a success in FULL_LOCK should stay locked")
	assert.Equal(t, uint8(failedBeforeScanning-1), f.failedCount,
		"a success does not reset failedCount; only the 50-failure threshold does")
}

func TestFSM_PartialLockRegressesWhenCountExceedsLimit(t *testing.T) {
	f := &fsm{state: PartialLock, partialLockCount: partialLockCounterLimit + 1}
	f.update(true, func() {})
	assert.Equal(t, Scanning, f.state, "partial lock count over limit should regress to SCANNING")
}
