package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies request failures so the orchestrator can tell
// "the source answered and has nothing" apart from transient trouble.
type ErrorKind int

const (
	// KindRemote covers network failures, bad status codes and undecodable
	// payloads. The next provider in line may still succeed.
	KindRemote ErrorKind = iota
	// KindNoData means the source answered properly but has no candles for
	// this instrument/interval (empty payload, unsupported instrument class).
	KindNoData
)

// RequestError is the uniform per-call failure type for all providers.
type RequestError struct {
	Provider   string
	Instrument string
	Kind       ErrorKind
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Provider, e.Instrument, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func remoteErr(name, instrument string, err error) *RequestError {
	return &RequestError{Provider: name, Instrument: instrument, Kind: KindRemote, Err: err}
}

func noDataErr(name, instrument, msg string) *RequestError {
	return &RequestError{Provider: name, Instrument: instrument, Kind: KindNoData, Err: errors.New(msg)}
}

// IsNoData reports whether err is a RequestError of kind KindNoData.
func IsNoData(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindNoData
}
