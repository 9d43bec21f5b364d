package review

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrConnectivity      = errors.New("review api unreachable")
	ErrRemoteStatus      = errors.New("review api returned non-ok status")
	ErrRemotePayload     = errors.New("review api returned an error payload")
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingField      = errors.New("missing field")
	ErrUnknownStatus     = errors.New("unknown homework status")
)

// ConnectivityError is a transport-level failure (dial, DNS, timeout).
type ConnectivityError struct {
	URL    string
	Params url.Values
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%v: GET %s params=%s: %v", ErrConnectivity, e.URL, e.Params.Encode(), e.Err)
}
func (e *ConnectivityError) Unwrap() error        { return e.Err }
func (e *ConnectivityError) Is(target error) bool { return target == ErrConnectivity }

// RemoteStatusError reports a non-200 HTTP response.
type RemoteStatusError struct {
	Code   int
	URL    string
	Params url.Values
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("%v: code=%d GET %s params=%s", ErrRemoteStatus, e.Code, e.URL, e.Params.Encode())
}
func (e *RemoteStatusError) Is(target error) bool { return target == ErrRemoteStatus }

// RemoteErrorPayload is the API's own error envelope embedded in a 200 body.
type RemoteErrorPayload struct {
	Message any // value of the "error" key, nil if absent
	Code    any // value of the "code" key, nil if absent
	Params  url.Values
}

func (e *RemoteErrorPayload) Error() string {
	return fmt.Sprintf("%v: error=%v code=%v params=%s", ErrRemotePayload, e.Message, e.Code, e.Params.Encode())
}
func (e *RemoteErrorPayload) Is(target error) bool { return target == ErrRemotePayload }

// PayloadError is a structural violation of the expected response shape.
// Kind is ErrMalformedResponse or ErrMissingField.
type PayloadError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *PayloadError) Error() string {
	switch {
	case e.Field != "" && e.Reason != "":
		return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.Field)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
}
func (e *PayloadError) Unwrap() error { return e.Kind }

func malformed(field, reason string) error {
	return &PayloadError{Kind: ErrMalformedResponse, Field: field, Reason: reason}
}

func missing(field string) error {
	return &PayloadError{Kind: ErrMissingField, Field: field}
}

// UnknownStatusError carries a status value outside the catalog.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownStatus, e.Status)
}
func (e *UnknownStatusError) Is(target error) bool { return target == ErrUnknownStatus }
