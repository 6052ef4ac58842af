package migration

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	communityCreatedMessageConstant = "community created"
	communityFailedMessageConstant  = "community migration failed"
	groupIDFieldNameConstant        = "group_id"
	communityIDFieldNameConstant    = "community_id"
)

// CommunityMigrator resolves the destination community of a source group.
type CommunityMigrator struct {
	guard       *IdempotencyGuard
	destination CommunityDestination
	attachments *AttachmentMigrator
	logger      *zap.Logger
}

// NewCommunityMigrator constructs a CommunityMigrator.
func NewCommunityMigrator(guard *IdempotencyGuard, destination CommunityDestination, attachments *AttachmentMigrator, logger *zap.Logger) *CommunityMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommunityMigrator{guard: guard, destination: destination, attachments: attachments, logger: logger}
}

// Migrate returns the existing community for group or creates it.
func (migrator *CommunityMigrator) Migrate(executionContext context.Context, group getsocial.Group) Outcome[amity.Community] {
	existing, found, findError := migrator.guard.FindCommunity(executionContext, group.ID)
	if findError != nil {
		migrator.logger.Error(communityFailedMessageConstant, zap.String(groupIDFieldNameConstant, group.ID), zap.Error(findError))
		return Failed[amity.Community](EntityKindCommunity, group.ID, findError)
	}
	if found {
		return SkippedExisting(existing)
	}

	avatarFileID := ""
	if len(group.AvatarURL) > 0 {
		if avatarOutcome := migrator.attachments.MigrateImage(executionContext, group.AvatarURL); avatarOutcome.Available() {
			avatarFileID = avatarOutcome.Value
		}
	}

	community, createError := migrator.destination.CreateCommunity(executionContext, amity.CommunityCreation{
		DisplayName:      group.Title.English(),
		Description:      group.Description.English(),
		Tags:             []string{ProvenanceTag(group.ID)},
		IsPublic:         !group.IsPrivate,
		OnlyAdminCanPost: false,
		Metadata:         map[string]any{provenanceMetadataKeyConstant: group.ID},
		AvatarFileID:     avatarFileID,
	})
	if createError != nil {
		migrator.logger.Error(communityFailedMessageConstant, zap.String(groupIDFieldNameConstant, group.ID), zap.Error(createError))
		return Failed[amity.Community](EntityKindCommunity, group.ID, createError)
	}

	migrator.logger.Debug(communityCreatedMessageConstant, zap.String(groupIDFieldNameConstant, group.ID), zap.String(communityIDFieldNameConstant, community.CommunityID))
	return Created(community)
}
