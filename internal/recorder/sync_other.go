//go:build !linux

package recorder

type syncer interface {
	Sync() error
}

// syncOutput makes the written records durable.
func syncOutput(out Output) error {
	f, ok := out.(syncer)
	if !ok {
		return nil
	}

	return f.Sync()
}
