package migration

import "go.uber.org/zap"

const entityFailureToleratedMessageConstant = "entity failure tolerated, continuing"

// FailurePolicy decides whether a failure of an entity without a degraded outcome
// (community, user, post, membership) fails its batch.
type FailurePolicy struct {
	ContinueOnEntityFailure bool
	logger                  *zap.Logger
}

// escalate returns failure when it should fail the batch and nil when it is tolerated.
func (policy FailurePolicy) escalate(failure error) error {
	if failure == nil {
		return nil
	}
	if !policy.ContinueOnEntityFailure {
		return failure
	}
	if policy.logger != nil {
		policy.logger.Warn(entityFailureToleratedMessageConstant, zap.Error(failure))
	}
	return nil
}
