package migration

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	commentFailedMessageConstant      = "comment migration failed"
	commentSkippedMessageConstant     = "comment skipped"
	commentIDFieldNameConstant        = "comment_id"
	reasonFieldNameConstant           = "reason"
	unaddressableAuthorReasonConstant = "author is not an addressable user"
)

// CommentMigrator copies source comments onto destination posts.
type CommentMigrator struct {
	destination CommentDestination
	sessions    *SessionProvider
	attachments *AttachmentMigrator
	logger      *zap.Logger
}

// NewCommentMigrator constructs a CommentMigrator.
func NewCommentMigrator(destination CommentDestination, sessions *SessionProvider, attachments *AttachmentMigrator, logger *zap.Logger) *CommentMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentMigrator{destination: destination, sessions: sessions, attachments: attachments, logger: logger}
}

// Migrate creates comment on post as its author. Comments without an addressable
// author, such as administrator comments, are skipped.
func (migrator *CommentMigrator) Migrate(executionContext context.Context, post amity.Post, comment getsocial.Activity) Outcome[amity.Comment] {
	author, addressable := comment.Author.AddressableUser()
	if !addressable {
		migrator.logger.Debug(commentSkippedMessageConstant, zap.String(commentIDFieldNameConstant, comment.ID), zap.String(reasonFieldNameConstant, unaddressableAuthorReasonConstant))
		return Skipped[amity.Comment](unaddressableAuthorReasonConstant)
	}

	accessToken, sessionError := migrator.sessions.AccessToken(executionContext, author)
	if sessionError != nil {
		return migrator.fail(comment.ID, sessionError)
	}

	metadata := activityMetadata(comment)
	metadata[provenanceMetadataKeyConstant] = comment.ID

	created, createError := migrator.destination.CreateComment(executionContext, accessToken, amity.CommentCreation{
		ReferenceID:   post.PostID,
		ReferenceType: postReferenceTypeConstant,
		Data:          amity.TextData{Text: activityText(comment)},
		Metadata:      metadata,
		CreatedAt:     formatCreatedAt(comment.CreatedAt),
		Attachments:   migrator.attachments.MigrateSet(executionContext, comment.ID, comment.PrimaryContent().Attachments),
	})
	if createError != nil {
		return migrator.fail(comment.ID, createError)
	}
	return Created(created)
}

func (migrator *CommentMigrator) fail(commentID string, cause error) Outcome[amity.Comment] {
	migrator.logger.Error(commentFailedMessageConstant, zap.String(commentIDFieldNameConstant, commentID), zap.Error(cause))
	return Failed[amity.Comment](EntityKindComment, commentID, cause)
}
