package dependency

import (
	"errors"

	consulapi "github.com/hashicorp/consul/api"
)

var (
	// ErrNoConsul is returned when a Consul query runs without a Consul client.
	ErrNoConsul = errors.New("no consul client configured")

	// ErrNoVault is returned when a Vault query runs without a Vault client.
	ErrNoVault = errors.New("no vault client configured")

	// ErrNotFound is returned when the key or secret does not exist.
	ErrNotFound = errors.New("not found")
)

// ConsulAPIStatus contains information about the api status from Consul
type ConsulAPIStatus struct {
	Code int
	Body string
}

// DecodeConsulStatusError returns the decoded parameters
// from a Consul API StatusError as a ConsulAPIStatus
func DecodeConsulStatusError(err error) (ConsulAPIStatus, bool) {
	var serr consulapi.StatusError
	if errors.As(err, &serr) {
		return ConsulAPIStatus{serr.Code, serr.Body}, true
	}

	return ConsulAPIStatus{0, ""}, false
}

// Temporary reports whether err is worth retrying. Missing clients, missing
// keys and 4xx responses are not.
func Temporary(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNoConsul), errors.Is(err, ErrNoVault),
		errors.Is(err, ErrNotFound):
		return false
	}
	if s, ok := DecodeConsulStatusError(err); ok {
		return s.Code >= 500
	}
	return true
}
