package migration

import "fmt"

const (
	entityErrorTemplateConstant = "%s %s: %v"
)

// EntityKind names the kinds of entity a migration handles.
type EntityKind string

// Entity kinds.
const (
	EntityKindCommunity  EntityKind = "community"
	EntityKindUser       EntityKind = "user"
	EntityKindMembership EntityKind = "membership"
	EntityKindFollow     EntityKind = "follow"
	EntityKindPost       EntityKind = "post"
	EntityKindReaction   EntityKind = "reaction"
	EntityKindComment    EntityKind = "comment"
	EntityKindAttachment EntityKind = "attachment"
)

// EntityError attributes a failure to a single source entity.
type EntityError struct {
	Kind     EntityKind
	SourceID string
	Cause    error
}

// Error describes the failure.
func (entityError EntityError) Error() string {
	return fmt.Sprintf(entityErrorTemplateConstant, entityError.Kind, entityError.SourceID, entityError.Cause)
}

// Unwrap exposes the underlying failure.
func (entityError EntityError) Unwrap() error {
	return entityError.Cause
}

// OutcomeKind classifies what happened to one entity.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeCreated         OutcomeKind = "created"
	OutcomeSkippedExisting OutcomeKind = "skipped_existing"
	OutcomeSkipped         OutcomeKind = "skipped"
	OutcomeFailed          OutcomeKind = "failed"
)

// Outcome is the explicit result of migrating one entity.
// Value is meaningful for Created and SkippedExisting; Reason for Skipped; Failure for Failed.
type Outcome[T any] struct {
	Kind    OutcomeKind
	Value   T
	Reason  string
	Failure error
}

// Created reports a newly written destination entity.
func Created[T any](value T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeCreated, Value: value}
}

// SkippedExisting reports an entity already present from an earlier run.
func SkippedExisting[T any](value T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSkippedExisting, Value: value}
}

// Skipped reports an entity intentionally not migrated.
func Skipped[T any](reason string) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSkipped, Reason: reason}
}

// Failed reports an entity whose migration failed.
func Failed[T any](kind EntityKind, sourceID string, cause error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFailed, Failure: EntityError{Kind: kind, SourceID: sourceID, Cause: cause}}
}

// Available reports whether Value refers to a destination entity.
func (outcome Outcome[T]) Available() bool {
	return outcome.Kind == OutcomeCreated || outcome.Kind == OutcomeSkippedExisting
}

// Err returns the failure of a Failed outcome and nil otherwise.
func (outcome Outcome[T]) Err() error {
	if outcome.Kind != OutcomeFailed {
		return nil
	}
	return outcome.Failure
}
