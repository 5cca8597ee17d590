package tfs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ResultKind tags the outcome of an operation.
type ResultKind int

const (
	// KindValue: the response body was parsed as JSON.
	KindValue ResultKind = iota
	// KindEmpty: the request succeeded without content.
	KindEmpty
	// KindError: a 200 response whose body is not valid JSON.
	KindError
	// KindFailure: a transport or HTTP failure, already reported to the
	// status logger.
	KindFailure
)

func (k ResultKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindEmpty:
		return "empty"
	case KindError:
		return "error"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Response is the outcome of Fire.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Err is set when the request failed; Body is nil then.
	Err *StatusError
}

// Failed reports whether the request failed.
func (r *Response) Failed() bool {
	return r != nil && r.Err != nil
}

// Result is the normalized outcome of an operation.
type Result struct {
	Kind       ResultKind
	StatusCode int

	// Value holds the parsed JSON for KindValue.
	Value any

	// Err is a *ParseError for KindError and a *StatusError (or, for a
	// merged GetBatch, an aggregate of chunk failures) for KindFailure.
	Err error

	// Partial lists chunk failures of a GetBatch result that still
	// merged at least one chunk.
	Partial error
}

// OK reports whether the result holds a parsed value.
func (r *Result) OK() bool {
	return r != nil && r.Kind == KindValue
}

// Message describes a non-value result.
func (r *Result) Message() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Kind == KindEmpty:
		return ErrEmptyResponse.Error()
	default:
		return ""
	}
}

// Legacy returns the three-shape view older callers expect: the parsed
// value, false for empty and failed results, or a
// {"status":"Error","message":...} object when the body did not parse.
func (r *Result) Legacy() any {
	switch r.Kind {
	case KindValue:
		return r.Value
	case KindError:
		return map[string]any{
			"status":  "Error",
			"message": r.Message(),
		}
	default:
		return false
	}
}

// Object returns the value as a JSON object.
func (r *Result) Object() (map[string]any, bool) {
	if !r.OK() {
		return nil, false
	}
	obj, ok := r.Value.(map[string]any)
	return obj, ok
}

// Items returns the "value" array of an object result.
func (r *Result) Items() ([]any, bool) {
	obj, ok := r.Object()
	if !ok {
		return nil, false
	}
	items, ok := obj["value"].([]any)
	return items, ok
}

// Decode copies the value into out, typically a *WorkItem, *WorkItemList,
// *QueryResult or *AttachmentReference.
func (r *Result) Decode(out any) error {
	if !r.OK() {
		return r.cause()
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:     out,
		TagName:    "json",
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := decoder.Decode(r.Value); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// cause returns the error that explains why r holds no usable value.
func (r *Result) cause() error {
	switch {
	case r.Err != nil:
		return r.Err
	case r.Kind == KindEmpty:
		return ErrEmptyResponse
	default:
		return ErrNoValue
	}
}
