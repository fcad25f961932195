package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotAuthenticated = errors.New("session is not authenticated")
)

// ValidationError reports payload schema or bounds violations. It is shown
// to the client verbatim and the offending event is discarded.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// CacheOperationError wraps any Inbox Cache failure with the operation name
// and the key it touched.
type CacheOperationError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheOperationError) Error() string {
	return fmt.Sprintf("cache operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheOperationError) Unwrap() error { return e.Err }

// QueuePublishError marks a failed handoff to the durable queue; ingress
// reacts to it with a compensating store delete.
type QueuePublishError struct {
	Err error
}

func (e *QueuePublishError) Error() string {
	return fmt.Sprintf("queue publish failed: %v", e.Err)
}

func (e *QueuePublishError) Unwrap() error { return e.Err }

// QueueConsumeError marks a consumer pipeline setup failure.
type QueueConsumeError struct {
	Err error
}

func (e *QueueConsumeError) Error() string {
	return fmt.Sprintf("queue consume failed: %v", e.Err)
}

func (e *QueueConsumeError) Unwrap() error { return e.Err }
