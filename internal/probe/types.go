// Package probe implements the RPC-style client used to back dashboard
// widgets. Every widget consumes exactly one probe: a single request with
// optional filter/sort/limit parameters, answered by a single payload or
// an explicit failure.
package probe

import (
	"encoding/json"
	"fmt"
)

// Filter restricts the rows a probe method returns.
// Operator is one of "=", "!=", "in", "<", "<=", ">", ">=".
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Operator: "=", Value: value}
}

// In builds a set-membership filter.
func In(field string, values ...string) Filter {
	return Filter{Field: field, Operator: "in", Value: values}
}

// Request identifies a probe method and its row constraints.
type Request struct {
	Method  string   `json:"method"`
	Filters []Filter `json:"filters,omitempty"`
	OrderBy string   `json:"order_by,omitempty"` // e.g. "deadline asc"
	Limit   int      `json:"limit,omitempty"`
}

// FailureKind classifies a probe failure. The distinction is a typed
// decision: callers branch on the kind, never on error text.
type FailureKind int

const (
	// FailureGenuine is a transport or remote error. It surfaces to the
	// viewer as an Error card.
	FailureGenuine FailureKind = iota

	// FailureTolerated means the requested method or field does not exist
	// in this deployment yet (progressive schema rollout). It is swallowed
	// silently and must not be mistaken for zero pending work.
	FailureTolerated
)

// Failure is the error type returned by probe calls.
type Failure struct {
	Kind  FailureKind
	Cause error
}

func (f *Failure) Error() string {
	if f.Kind == FailureTolerated {
		return fmt.Sprintf("probe field unavailable: %v", f.Cause)
	}
	return fmt.Sprintf("probe failed: %v", f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Tolerated wraps cause as a schema-absence failure.
func Tolerated(cause error) *Failure {
	return &Failure{Kind: FailureTolerated, Cause: cause}
}

// Genuine wraps cause as a real transport/remote failure.
func Genuine(cause error) *Failure {
	return &Failure{Kind: FailureGenuine, Cause: cause}
}

// response is the wire envelope for probe replies. Exactly one of Data
// and Err is set. An absent method/field is reported through Err with
// code "FieldNotFound" so the client can distinguish it from transport
// failures.
type response struct {
	Data json.RawMessage `json:"data,omitempty"`
	Err  *remoteError    `json:"error,omitempty"`
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrCodeFieldNotFound is the remote error code signalling schema absence.
const ErrCodeFieldNotFound = "FieldNotFound"
