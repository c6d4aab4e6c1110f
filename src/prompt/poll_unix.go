//go:build linux || darwin

package prompt

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const canPoll = true

// waitReadable reports whether f has input within d.
func waitReadable(f *os.File, d time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(d.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}
