package bridge

import (
	"fmt"

	"github.com/go-errors/errors"
)

var (
	ErrBridgeClosed  = errors.New("bridge session closed")
	ErrNotConfigured = errors.New("WalletKit is not configured, call Initialize first")
	ErrInvalidParams = errors.New("params are not valid JSON")
)

// BridgeError is a failure the JavaScript side reported for a single call.
type BridgeError struct {
	Method  string
	CallID  string
	Message string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("walletkit %s failed: %s", e.Method, e.Message)
}
