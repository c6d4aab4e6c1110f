//go:build !linux && !darwin

package prompt

import (
	"errors"
	"os"
	"time"
)

const canPoll = false

func waitReadable(*os.File, time.Duration) (bool, error) {
	return false, errors.ErrUnsupported
}
