package token

import "errors"

var (
	// ErrMalformed indicates the token could not be decoded or split into
	// payload and signature.
	ErrMalformed = errors.New("malformed token")
	// ErrBadSignature indicates the HMAC did not match the payload.
	ErrBadSignature = errors.New("token signature mismatch")
	// ErrExpired indicates a well-formed, correctly signed token whose
	// expiry timestamp is in the past.
	ErrExpired = errors.New("token expired")
)
