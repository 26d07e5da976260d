// Package common defines sentinel errors and constants shared by the
// gatekeeper server layers. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorForbidden = errors.New("forbidden")

	// Token errors. An expired token matches both ErrInvalidToken and ErrTokenExpired.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Dependency errors.
	ErrMailDelivery = errors.New("mail delivery failed")
	ErrRateLimited  = errors.New("rate limited")
)
