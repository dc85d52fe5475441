package service

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("authentication failed")
	ErrSessionNotFound     = errors.New("payment session not found")
	ErrSessionExists       = errors.New("payment session already exists")
	ErrConflict            = errors.New("transition conflicts with terminal session status")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrProviderUnsupported = errors.New("provider is not supported")
)
