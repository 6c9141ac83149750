package linerun

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCommand is returned when a Request carries no argv at all.
	ErrEmptyCommand = errors.New("linerun: empty command")
	// ErrLaunch is the sentinel matched by errors.Is for any LaunchError.
	ErrLaunch = errors.New("linerun: unable to launch command")
	// ErrInvalidUTF8 is the sentinel matched by errors.Is for any DecodeError.
	ErrInvalidUTF8 = errors.New("linerun: output is not valid UTF-8")
)

// LaunchError reports that the child process could not be started: the
// program was not found, the working directory is invalid, or the operating
// system refused the spawn. No partial result accompanies a LaunchError.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("linerun: launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *LaunchError) Is(target error) bool {
	return target == ErrLaunch
}

// DecodeError reports that a chunk read from the child's output stream was
// not valid UTF-8 under the strict decoding policy. Chunk is the zero-based
// index of the offending chunk.
type DecodeError struct {
	Chunk int
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("linerun: chunk %d is not valid UTF-8", e.Chunk)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidUTF8
}
