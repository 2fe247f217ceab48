package wallet

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindMalformed   Kind = "malformed"
	KindNetwork     Kind = "network"
	KindStatus      Kind = "status"
)

// Sentinels matched through errors.Is on an *UpstreamError.
var (
	ErrTimeout     = errors.New("upstream timed out")
	ErrAuth        = errors.New("upstream rejected credentials")
	ErrRateLimited = errors.New("upstream rate limited")
	ErrMalformed   = errors.New("malformed upstream payload")
	ErrNetwork     = errors.New("upstream unreachable")
)

// UpstreamError is returned by every Client operation that reached (or tried
// to reach) the wallet API.
type UpstreamError struct {
	Op         string
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTimeout) and friends match on Kind.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrMalformed:
		return e.Kind == KindMalformed
	case ErrNetwork:
		return e.Kind == KindNetwork
	}
	return false
}

// UserMessage is the text shown in place of the failed panel.
func (e *UpstreamError) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "The wallet service timed out. Please refresh to try again."
	case KindAuth:
		return "The wallet token was rejected. Check the API settings."
	case KindRateLimited:
		return "Too many requests. Please wait a moment before refreshing."
	case KindMalformed:
		return "The wallet service returned an unexpected response."
	case KindNetwork:
		return "Could not reach the wallet service."
	default:
		if e.StatusCode != 0 {
			return fmt.Sprintf("The wallet service returned an error (HTTP %d).", e.StatusCode)
		}
		return "The wallet service returned an error."
	}
}

// UserMessage renders any error for display, using the UpstreamError text
// when there is one.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.UserMessage()
	}
	return err.Error()
}

func kindForStatus(code int) Kind {
	switch code {
	case 401, 403:
		return KindAuth
	case 429:
		return KindRateLimited
	}
	return KindStatus
}
