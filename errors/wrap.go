package errors

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Wrap adds description to err. A stack trace is attached by the first Wrap
// only, so it points where the failure was detected. Wrapping nil returns
// nil.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &wrappedError{msg: description, parent: err}
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.parent.Error()
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Format prints the message for %s. For %v the message is followed by the
// place the error was created, for %+v it is preceded by the whole stack.
func (e *wrappedError) Format(s fmt.State, verb rune) {
	stack := trimStack(stackTrace(e))
	switch {
	case verb != 'v' || len(stack) == 0:
		fmt.Fprint(s, e.Error())
	case s.Flag('+'):
		fmt.Fprintf(s, "%+v\n%s", stack, e.Error())
	default:
		file, line := location(stack[0])
		fmt.Fprintf(s, "%s [%s:%d]", e.Error(), file, line)
	}
}

// stackTrace returns the innermost stack trace carried by err, or nil.
func stackTrace(err error) errors.StackTrace {
	type tracer interface {
		StackTrace() errors.StackTrace
	}
	for err != nil {
		if t, ok := err.(tracer); ok {
			return t.StackTrace()
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}

// Frames of this package and of the runtime are noise for the reader of a
// stack trace.
var (
	innerFrames = []string{
		"github.com/iov-one/xswap/errors.Wrap",
		"github.com/iov-one/xswap/errors.(*Error).New",
		"runtime.",
		"/_test/",
	}
	outerFrames = []string{"runtime.", "testing."}
)

func trimStack(st errors.StackTrace) errors.StackTrace {
	for len(st) > 0 && hasPrefix(funcName(st[0]), innerFrames) {
		st = st[1:]
	}
	for len(st) > 1 && hasPrefix(funcName(st[len(st)-1]), outerFrames) {
		st = st[:len(st)-1]
	}
	return st
}

func hasPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// A frame is the return address, one past the call instruction.
func pc(f errors.Frame) uintptr {
	return uintptr(f) - 1
}

func funcName(f errors.Frame) string {
	if fn := runtime.FuncForPC(pc(f)); fn != nil {
		return fn.Name()
	}
	return "unknown"
}

// location returns the file, relative to the code host, and line of f.
func location(f errors.Frame) (string, int) {
	fn := runtime.FuncForPC(pc(f))
	if fn == nil {
		return "unknown", 0
	}
	file, line := fn.FileLine(pc(f))
	if i := strings.Index(file, "github.com/"); i >= 0 {
		file = file[i+len("github.com/"):]
	}
	return file, line
}
