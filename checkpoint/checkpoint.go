// Package checkpoint decorates errors with caller information, which results
// in something similar to a stacktrace. Every error attached to a checkpoint
// stays visible to errors.Is and errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps an error in a new checkpoint carrying the caller's position.
// It returns nil if err is nil.
func From(err error) error {
	// io.EOF must stay io.EOF, several stdlib consumers compare it directly.
	// https://github.com/golang/go/issues/39155
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}
	if err == nil {
		return nil
	}

	_, file, line, ok := runtime.Caller(1)

	return &checkpoint{
		err:      err,
		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

// Wrap creates a checkpoint from prev and attaches err as an additional
// classification. It returns nil if prev is nil.
//
// The common use is to pair a low-level error with a predefined sentinel:
//  var ErrOpenImage = errors.New("could not open the image")
//  func open() error {
//  	return checkpoint.Wrap(doOpen(), ErrOpenImage)
//  }
// Afterwards errors.Is reports true for both the sentinel and the error
// returned by doOpen.
func Wrap(prev, err error) error {
	if prev == io.EOF {
		return io.EOF
	}
	if prev == nil {
		return nil
	}

	_, file, line, ok := runtime.Caller(1)

	return &checkpoint{
		err:      err,
		prev:     prev,
		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	err  error
	prev error

	callerOk bool
	file     string
	line     int
}

func (e *checkpoint) Error() string {
	position := "File: unknown"
	if e.callerOk {
		position = fmt.Sprintf("File: %s:%d", e.file, e.line)
	}

	if e.prev == nil {
		return fmt.Sprintf("%s\n\t%v", position, e.err)
	}

	// Indent foreign errors so that the chain stays readable.
	prevErrString := e.prev.Error()
	if _, ok := e.prev.(*checkpoint); !ok {
		prevErrString = "File: unknown\n\t" + strings.ReplaceAll(prevErrString, "\n", "\n\t")
	}

	if e.err == nil {
		return fmt.Sprintf("%s\n%v", position, prevErrString)
	}
	return fmt.Sprintf("%s\n\t%v\n%v", position, e.err, prevErrString)
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	if e.err == nil {
		return false
	}
	return errors.As(e.err, target)
}
