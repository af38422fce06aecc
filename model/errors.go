package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ConfigError reports an invalid configuration value or combination.
// It is fatal and never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing source document.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.Path)
}

// UnreadableError reports a document whose content could not be parsed.
type UnreadableError struct {
	Path string
	Err  error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("document unreadable: %s: %v", e.Path, e.Err)
}

func (e *UnreadableError) Unwrap() error {
	return e.Err
}

// ServiceErrorKind classifies a failed embedding or generation call.
type ServiceErrorKind string

const (
	ServiceErrorTimeout     ServiceErrorKind = "timeout"
	ServiceErrorRateLimited ServiceErrorKind = "rate_limited"
	ServiceErrorAuth        ServiceErrorKind = "auth"
	ServiceErrorUnknown     ServiceErrorKind = "unknown"
)

// ServiceError wraps a failed call to an external model service.
// Timeout and RateLimited are retryable, Auth is fatal.
type ServiceError struct {
	Service string // "embedding" or "generation"
	Kind    ServiceErrorKind
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service error (%s): %v", e.Service, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may be repeated with backoff.
func (e *ServiceError) Retryable() bool {
	return e.Kind == ServiceErrorTimeout || e.Kind == ServiceErrorRateLimited
}

// ClassifyServiceError wraps err as a ServiceError for the named service,
// deriving the kind from context errors and well-known provider messages.
func ClassifyServiceError(service string, err error) *ServiceError {
	kind := ServiceErrorUnknown

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		kind = ServiceErrorTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		kind = ServiceErrorRateLimited
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		kind = ServiceErrorAuth
	}

	return &ServiceError{Service: service, Kind: kind, Err: err}
}

// PartialIndexError reports a build in which some chunks could not be
// embedded. The build can be resumed for the named chunks only.
type PartialIndexError struct {
	FailedChunkRIDs []uuid.UUID
}

func (e *PartialIndexError) Error() string {
	return fmt.Sprintf("index build incomplete: %d chunks failed to embed", len(e.FailedChunkRIDs))
}

// EmptyIndexError reports a query against an index with zero records.
// Distinct from "no relevant result" so the caller can ask for a rebuild.
type EmptyIndexError struct{}

func (e *EmptyIndexError) Error() string {
	return "vector index is empty, build the index before querying"
}

// GenerationError reports that the generation service failed after all
// retry attempts were exhausted.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
