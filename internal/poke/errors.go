package poke

import "fmt"

// TransportError reports a network-level failure reaching the provider,
// including request timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "pokeapi unreachable: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("pokeapi status %d", e.Code) }

// DecodeError reports a provider body that could not be decoded as the
// expected JSON structure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "pokeapi response undecodable: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
