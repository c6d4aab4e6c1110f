package prompt

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// discardPending drops terminal input that was typed but not read.
func discardPending(f *os.File) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	_ = unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
}
