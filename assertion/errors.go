package assertion

import "errors"

var (
	// ErrKeyRead is returned when the private key material cannot be read.
	ErrKeyRead = errors.New("private key unreadable")
	// ErrSigning is returned when the key is malformed or the assertion cannot be signed.
	ErrSigning = errors.New("assertion signing failed")
	// ErrEmptySubject is returned when the signer is configured without a subject.
	ErrEmptySubject = errors.New("assertion subject is empty")
)
