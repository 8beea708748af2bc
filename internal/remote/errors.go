package remote

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable = errors.New("remote store unavailable")
	ErrTimeout     = errors.New("remote store timed out")
)

// ProtocolError is a response that arrived but did not report success.
type ProtocolError struct {
	Op      string
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
}

// IsRemoteFailure reports whether err is one of the failures that send a
// mutation down the local fallback path.
func IsRemoteFailure(err error) bool {
	var pe *ProtocolError
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) || errors.As(err, &pe)
}
