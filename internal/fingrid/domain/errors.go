package domain

import (
	"errors"
	"fmt"
)

var (
	ErrVendorUnavailable = errors.New("vendor_unavailable")
	ErrVendorTimeout     = errors.New("vendor_timeout")
	ErrMalformedResponse = errors.New("malformed_vendor_response")
)

const CodeUnknown = "UNKNOWN"

// VendorError is a structured rejection from a reachable processor.
type VendorError struct {
	Operation Operation
	Code      string
	Message   string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("fingrid %s rejected: code=%s message=%q", e.Operation, e.Code, e.Message)
}

func (e *VendorError) Kind() string { return "vendor_error" }

// UserMessage is the merchant- or customer-facing translation.
func (e *VendorError) UserMessage() string {
	return Translate(e.Operation, e.Code, e.Message).Message
}

func (e *VendorError) Outcome() Outcome {
	return Translate(e.Operation, e.Code, e.Message).Outcome
}

// NetworkError covers transport failures and undecodable responses. Its
// message never includes transport detail.
type NetworkError struct {
	Operation Operation
	Timeout   bool
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fingrid %s unreachable: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrVendorUnavailable:
		return true
	case ErrVendorTimeout:
		return e.Timeout
	}
	return false
}

func (e *NetworkError) Kind() string {
	if e.Timeout {
		return "vendor_timeout"
	}
	return "network_error"
}

func (e *NetworkError) UserMessage() string {
	return NetworkMessage(e.Operation)
}

func (e *NetworkError) FailureKind() FailureKind {
	if e.Timeout {
		return FailureTimeout
	}
	return FailureNetwork
}
