//go:build !linux

package prompt

import "os"

func discardPending(f *os.File) {}
