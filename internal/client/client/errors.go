package client

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/donorlink/internal/common"
)

// StoreError is the error body returned by the REST gateway.
type StoreError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("store error %d: %s", e.Status, e.Message)
}

func remoteError(op, collection string, err error) error {
	return &common.RemoteError{Op: op, Collection: collection, Err: err}
}

// mapTransportError classifies errors that happened before a response was read.
// The cause stays in the chain so context errors remain matchable.
func mapTransportError(err error) error {
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}

func mapStatusError(se *StoreError) error {
	switch se.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", common.ErrUnauthorized, se)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", common.ErrUnavailable, se)
	default:
		return se
	}
}
