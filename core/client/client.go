package client

import (
	"context"
	"errors"
	"time"
)

// TimeSource queries a remote time authority for one authoritative UTC
// timestamp. Implementations bound their blocking duration by the context
// deadline and have no side effects beyond the network call.
type TimeSource interface {
	FetchTime(ctx context.Context) (time.Time, error)
}

// Error kinds returned by time sources. Every error returned by FetchTime
// wraps exactly one of these so callers can classify the failure.
var (
	ErrNetwork = errors.New("time authority unreachable")
	ErrParse   = errors.New("malformed time authority response")
)
