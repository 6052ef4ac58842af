package migration

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	postCreatedMessageConstant = "post created"
	postFailedMessageConstant  = "post migration failed"
	postIDFieldNameConstant    = "post_id"
)

// PostMigrator copies a source post into a destination community.
type PostMigrator struct {
	guard       *IdempotencyGuard
	destination PostDestination
	sessions    *SessionProvider
	attachments *AttachmentMigrator
	logger      *zap.Logger
}

// NewPostMigrator constructs a PostMigrator.
func NewPostMigrator(guard *IdempotencyGuard, destination PostDestination, sessions *SessionProvider, attachments *AttachmentMigrator, logger *zap.Logger) *PostMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostMigrator{guard: guard, destination: destination, sessions: sessions, attachments: attachments, logger: logger}
}

// Migrate returns the post already migrated into community or creates it as its author.
// Posts without an addressable author are created as the administrator.
func (migrator *PostMigrator) Migrate(executionContext context.Context, community amity.Community, post getsocial.Activity) Outcome[amity.Post] {
	existing, found, findError := migrator.guard.FindPost(executionContext, community.CommunityID, post.ID)
	if findError != nil {
		return migrator.fail(post.ID, findError)
	}
	if found {
		return SkippedExisting(existing)
	}

	accessToken := ""
	if author, addressable := post.Author.AddressableUser(); addressable {
		authorToken, sessionError := migrator.sessions.AccessToken(executionContext, author)
		if sessionError != nil {
			return migrator.fail(post.ID, sessionError)
		}
		accessToken = authorToken
	}

	attachments := migrator.attachments.MigrateSet(executionContext, post.ID, post.PrimaryContent().Attachments)

	created, createError := migrator.destination.CreatePost(executionContext, accessToken, amity.PostCreation{
		Data:        amity.TextData{Text: activityText(post)},
		Attachments: attachments,
		Tags:        postTags(post),
		Metadata:    activityMetadata(post),
		CreatedAt:   formatCreatedAt(post.CreatedAt),
		TargetType:  communityTargetTypeConstant,
		TargetID:    community.CommunityID,
	})
	if createError != nil {
		return migrator.fail(post.ID, createError)
	}

	migrator.logger.Debug(postCreatedMessageConstant, zap.String(postIDFieldNameConstant, post.ID), zap.String(destinationIDFieldNameConstant, created.PostID))
	return Created(created)
}

func (migrator *PostMigrator) fail(postID string, cause error) Outcome[amity.Post] {
	migrator.logger.Error(postFailedMessageConstant, zap.String(postIDFieldNameConstant, postID), zap.Error(cause))
	return Failed[amity.Post](EntityKindPost, postID, cause)
}
