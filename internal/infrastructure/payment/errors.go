package payment

import "errors"

// Gateway errors shared by the payment adapters
var (
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrGatewayRequestFailed = errors.New("payment gateway request failed")
	ErrReadyTimeout         = errors.New("payment gateway not ready before timeout")
)
