package migration

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
)

const (
	communityTargetTypeConstant        = "community"
	existingEntityFoundMessageConstant = "existing destination entity found"
	looseTagMatchMessageConstant       = "destination tag search returned entities without exact provenance tag"
	sourceIDFieldNameConstant          = "source_id"
	destinationIDFieldNameConstant     = "destination_id"
	entityKindFieldNameConstant        = "kind"
	discardedCountFieldNameConstant    = "discarded_count"
)

// GuardDestination is the search capability the guard needs.
type GuardDestination interface {
	SearchCommunities(executionContext context.Context, query amity.CommunityQuery) ([]amity.Community, error)
	SearchPosts(executionContext context.Context, query amity.PostQuery) ([]amity.Post, error)
}

// IdempotencyGuard detects destination entities created by earlier runs.
type IdempotencyGuard struct {
	destination GuardDestination
	logger      *zap.Logger
}

// NewIdempotencyGuard constructs a guard.
func NewIdempotencyGuard(destination GuardDestination, logger *zap.Logger) *IdempotencyGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyGuard{destination: destination, logger: logger}
}

// FindCommunity returns the community migrated from sourceGroupID, if any.
func (guard *IdempotencyGuard) FindCommunity(executionContext context.Context, sourceGroupID string) (amity.Community, bool, error) {
	communities, searchError := guard.destination.SearchCommunities(executionContext, amity.CommunityQuery{
		Tags: []string{ProvenanceTag(sourceGroupID)},
	})
	if searchError != nil {
		return amity.Community{}, false, searchError
	}
	community, found := firstTagged(guard, EntityKindCommunity, sourceGroupID, communities, func(candidate amity.Community) []string { return candidate.Tags })
	if found {
		guard.logFound(EntityKindCommunity, sourceGroupID, community.CommunityID)
	}
	return community, found, nil
}

// FindPost returns the post migrated from sourcePostID into communityID, if any.
func (guard *IdempotencyGuard) FindPost(executionContext context.Context, communityID string, sourcePostID string) (amity.Post, bool, error) {
	posts, searchError := guard.destination.SearchPosts(executionContext, amity.PostQuery{
		TargetType: communityTargetTypeConstant,
		TargetID:   communityID,
		Tags:       []string{ProvenanceTag(sourcePostID)},
	})
	if searchError != nil {
		return amity.Post{}, false, searchError
	}
	post, found := firstTagged(guard, EntityKindPost, sourcePostID, posts, func(candidate amity.Post) []string { return candidate.Tags })
	if found {
		guard.logFound(EntityKindPost, sourcePostID, post.PostID)
	}
	return post, found, nil
}

func firstTagged[T any](guard *IdempotencyGuard, kind EntityKind, sourceID string, candidates []T, tagsOf func(T) []string) (T, bool) {
	discarded := 0
	for _, candidate := range candidates {
		if HasProvenanceTag(tagsOf(candidate), sourceID) {
			return candidate, true
		}
		discarded++
	}
	if discarded > 0 {
		guard.logger.Debug(
			looseTagMatchMessageConstant,
			zap.String(entityKindFieldNameConstant, string(kind)),
			zap.String(sourceIDFieldNameConstant, sourceID),
			zap.Int(discardedCountFieldNameConstant, discarded),
		)
	}
	var zeroValue T
	return zeroValue, false
}

func (guard *IdempotencyGuard) logFound(kind EntityKind, sourceID string, destinationID string) {
	guard.logger.Debug(
		existingEntityFoundMessageConstant,
		zap.String(entityKindFieldNameConstant, string(kind)),
		zap.String(sourceIDFieldNameConstant, sourceID),
		zap.String(destinationIDFieldNameConstant, destinationID),
	)
}
