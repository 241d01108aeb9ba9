package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrNetworkFailure ist das gemeinsame Ziel für errors.Is bei allen Netzwerkfehlern.
var ErrNetworkFailure = errors.New("network failure")

// FailureKind kategorisiert einen Netzwerkfehler für die Anzeige.
type FailureKind string

const (
	KindTimeout    FailureKind = "timeout"
	KindHTTPStatus FailureKind = "http_status"
	KindEmptyBody  FailureKind = "empty_body"
	KindTransport  FailureKind = "transport"
	KindBadPayload FailureKind = "bad_payload"
	KindTooLarge   FailureKind = "too_large"
)

// NetworkError beschreibt einen fehlgeschlagenen Abruf.
type NetworkError struct {
	Kind       FailureKind
	StatusCode int
	URL        string
	Err        error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s: %s returned status %d", ErrNetworkFailure, e.URL, e.StatusCode)
	case KindEmptyBody:
		return fmt.Sprintf("%s: %s returned an empty body", ErrNetworkFailure, e.URL)
	case KindTooLarge:
		return fmt.Sprintf("%s: %s returned a body over the size limit", ErrNetworkFailure, e.URL)
	case KindBadPayload:
		return fmt.Sprintf("%s: %s returned an unreadable payload: %v", ErrNetworkFailure, e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrNetworkFailure, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrNetworkFailure, e.Kind)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetworkFailure }

// HTTPStatus bildet den Fehler auf einen Status für die eigene API ab.
func (e *NetworkError) HTTPStatus() int {
	if e.Kind == KindTimeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// ClassifyTransportError ordnet einen Fehler von http.Client.Do einer FailureKind zu.
func ClassifyTransportError(rawURL string, err error) *NetworkError {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &NetworkError{Kind: kind, URL: rawURL, Err: err}
}

// AsNetworkError liefert den NetworkError in der Fehlerkette, falls vorhanden.
func AsNetworkError(err error) (*NetworkError, bool) {
	var ne *NetworkError
	ok := errors.As(err, &ne)
	return ne, ok
}
