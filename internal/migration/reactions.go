package migration

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	postReferenceTypeConstant         = "post"
	reactionFailedMessageConstant     = "reaction migration failed"
	reactionNameFieldNameConstant     = "reaction_name"
	reactorIDFieldNameConstant        = "reactor_id"
	emptyReactionNameReasonConstant   = "empty reaction name"
	reactionSourceIDSeparatorConstant = ":"
)

// ReactionMigrator adds source reactions to destination posts.
type ReactionMigrator struct {
	destination ReactionDestination
	sessions    *SessionProvider
	logger      *zap.Logger
}

// NewReactionMigrator constructs a ReactionMigrator.
func NewReactionMigrator(destination ReactionDestination, sessions *SessionProvider, logger *zap.Logger) *ReactionMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReactionMigrator{destination: destination, sessions: sessions, logger: logger}
}

// Migrate adds reactionName to post as the reactor, or as the administrator when the reactor is not addressable.
func (migrator *ReactionMigrator) Migrate(executionContext context.Context, post amity.Post, reactor getsocial.Author, reactionName string) Outcome[string] {
	if len(reactionName) == 0 {
		return Skipped[string](emptyReactionNameReasonConstant)
	}

	reactorID := ""
	accessToken := ""
	if reactorUser, addressable := reactor.AddressableUser(); addressable {
		reactorID = reactorUser.ID
		userToken, sessionError := migrator.sessions.AccessToken(executionContext, reactorUser)
		if sessionError != nil {
			return migrator.fail(post.PostID, reactorID, reactionName, sessionError)
		}
		accessToken = userToken
	}

	createError := migrator.destination.CreateReaction(executionContext, accessToken, amity.ReactionCreation{
		ReferenceID:   post.PostID,
		ReferenceType: postReferenceTypeConstant,
		ReactionName:  reactionName,
	})
	if createError != nil {
		return migrator.fail(post.PostID, reactorID, reactionName, createError)
	}
	return Created(reactionName)
}

func (migrator *ReactionMigrator) fail(postID string, reactorID string, reactionName string, cause error) Outcome[string] {
	migrator.logger.Error(
		reactionFailedMessageConstant,
		zap.String(postIDFieldNameConstant, postID),
		zap.String(reactorIDFieldNameConstant, reactorID),
		zap.String(reactionNameFieldNameConstant, reactionName),
		zap.Error(cause),
	)
	return Failed[string](EntityKindReaction, postID+reactionSourceIDSeparatorConstant+reactorID+reactionSourceIDSeparatorConstant+reactionName, cause)
}
