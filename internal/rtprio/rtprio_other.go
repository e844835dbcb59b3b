//go:build !linux

package rtprio

import "errors"

// Enable changes nothing on platforms other than Linux and always returns
// an error; realtime scheduling here is a jitter optimization, not a
// correctness requirement.
func Enable(priority int) error {
	return errors.New("rtprio: realtime scheduling is only supported on linux")
}
