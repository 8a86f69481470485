//go:build linux

package recorder

import (
	"errors"

	"golang.org/x/sys/unix"
)

type fder interface {
	Fd() uintptr
}

// syncOutput makes the written records durable. Only file data is
// synced; the trace file's metadata does not matter to readers.
func syncOutput(out Output) error {
	f, ok := out.(fder)
	if !ok {
		return nil
	}

	err := unix.Fdatasync(int(f.Fd()))
	if errors.Is(err, unix.EINVAL) {
		// Pipes and character devices cannot be synced.
		return nil
	}

	return err
}
