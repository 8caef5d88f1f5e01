// Package engine defines the uniform capability wrapper around one
// extraction backend and the adapters for each configured backend.
package engine

import (
	"context"
	"fmt"

	"github.com/sunghoon-yu/tradedocs/constants"
	"github.com/sunghoon-yu/tradedocs/internal/common"
	"github.com/sunghoon-yu/tradedocs/internal/entity"
	"github.com/sunghoon-yu/tradedocs/internal/fields"
)

// Request carries everything an engine needs to extract one segment.
type Request struct {
	FilePath string
	Segment  entity.Segment
	Pages    []entity.Page // the segment's pages, in order
	Schema   fields.Schema
}

// Engine is the closed extraction capability. One variant per backend,
// each satisfying the same extract contract.
type Engine interface {
	ID() string
	Spec() common.EngineSpec
	Extract(ctx context.Context, req Request) (entity.RawResult, error)
}

// FailureKind classifies engine failures for the fallback policy.
type FailureKind string

const (
	FailureRateLimited    FailureKind = "rate_limited"
	FailureNetwork        FailureKind = "network"
	FailureUnavailable    FailureKind = "unavailable"
	FailureMalformedInput FailureKind = "malformed_input"
	FailureUnsupported    FailureKind = "unsupported"
)

// Transient reports whether the failure is worth retrying on the same
// engine. Misconfigured or unsupported inputs never are.
func (k FailureKind) Transient() bool {
	return k == FailureRateLimited || k == FailureNetwork
}

// Error is a classified engine failure.
type Error struct {
	EngineID string
	Kind     FailureKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine %s: %s: %v", e.EngineID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified engine failure.
func NewError(engineID string, kind FailureKind, err error) *Error {
	return &Error{EngineID: engineID, Kind: kind, Err: err}
}

// Supports reports whether the spec declares a capability.
func Supports(spec common.EngineSpec, cap constants.EngineCapability) bool {
	for _, c := range spec.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}
