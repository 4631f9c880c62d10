package proc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoActivity is returned by Terminate when nothing is registered.
	ErrNoActivity = errors.New("no activity in flight")
	// ErrBusy is returned when registering while another activity is in flight.
	ErrBusy = errors.New("another activity is in flight")
)

// ExitError reports a tool that exited with a non-zero status.
type ExitError struct {
	Tool string
	Code int
	Tail []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if len(e.Tail) > 0 {
		msg += ": " + strings.Join(e.Tail, " | ")
	}
	return msg
}
