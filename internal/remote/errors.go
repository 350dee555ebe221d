package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is returned when the service answers with a non-2xx status.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// NetworkError is returned when the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NormalizationError is returned when a response body cannot be decoded into
// the expected shape.
type NormalizationError struct {
	Op  string
	Err error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the service, meaning the
// session token is missing, expired or revoked.
func IsUnauthorized(err error) bool {
	return statusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// statusCode returns the HTTP status carried by a RemoteError in err's chain,
// or 0.
func statusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func statusMessage(code int) string {
	return fmt.Sprintf("HTTP error! status: %d", code)
}
