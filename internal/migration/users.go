package migration

import (
	"context"
	"maps"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
)

const (
	moderatorRoleConstant             = "moderator"
	userMigratedMessageConstant       = "user migrated"
	userFailedMessageConstant         = "user migration failed"
	avatarUploadFailedMessageConstant = "avatar upload failed, continuing without avatar"
)

// UserMigrator upserts a source user as a destination user.
type UserMigrator struct {
	destination     UserDestination
	sessions        *SessionProvider
	attachments     *AttachmentMigrator
	authIdentity    string
	mediaHostPrefix string
	logger          *zap.Logger
}

// UserMigratorOptions configures profile mapping.
type UserMigratorOptions struct {
	AuthIdentity    string
	MediaHostPrefix string
}

// NewUserMigrator constructs a UserMigrator.
func NewUserMigrator(destination UserDestination, sessions *SessionProvider, attachments *AttachmentMigrator, options UserMigratorOptions, logger *zap.Logger) *UserMigrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserMigrator{
		destination:     destination,
		sessions:        sessions,
		attachments:     attachments,
		authIdentity:    strings.TrimSpace(options.AuthIdentity),
		mediaHostPrefix: strings.TrimSpace(options.MediaHostPrefix),
		logger:          logger,
	}
}

// Migrate establishes the user's session, resolves the avatar, and upserts the profile.
func (migrator *UserMigrator) Migrate(executionContext context.Context, user getsocial.User) Outcome[amity.User] {
	if _, sessionError := migrator.sessions.AccessToken(executionContext, user); sessionError != nil {
		migrator.logger.Error(userFailedMessageConstant, zap.String(userIDFieldNameConstant, user.ID), zap.Error(sessionError))
		return Failed[amity.User](EntityKindUser, user.ID, sessionError)
	}

	update := amity.UserUpdate{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Roles:       []string{},
		Metadata:    migrator.userMetadata(user),
	}
	if user.CanModerate {
		update.Roles = []string{moderatorRoleConstant}
	}
	migrator.resolveAvatar(executionContext, user, &update)

	storedUser, upsertError := migrator.destination.UpsertUser(executionContext, update)
	if upsertError != nil {
		migrator.logger.Error(userFailedMessageConstant, zap.String(userIDFieldNameConstant, user.ID), zap.Error(upsertError))
		return Failed[amity.User](EntityKindUser, user.ID, upsertError)
	}

	migrator.logger.Debug(userMigratedMessageConstant, zap.String(userIDFieldNameConstant, user.ID))
	return Created(storedUser)
}

func (migrator *UserMigrator) userMetadata(user getsocial.User) map[string]any {
	metadata := make(map[string]any, len(user.PublicProperties)+len(user.PrivateProperties)+1)
	maps.Copy(metadata, user.PublicProperties)
	maps.Copy(metadata, user.PrivateProperties)
	if len(migrator.authIdentity) > 0 {
		if identity, present := user.AuthIdentities[migrator.authIdentity]; present {
			metadata[migrator.authIdentity] = identity
		}
	}
	return metadata
}

func (migrator *UserMigrator) resolveAvatar(executionContext context.Context, user getsocial.User, update *amity.UserUpdate) {
	if len(user.AvatarURL) == 0 {
		return
	}
	if len(migrator.mediaHostPrefix) == 0 || !strings.HasPrefix(user.AvatarURL, migrator.mediaHostPrefix) {
		update.AvatarCustomURL = user.AvatarURL
		return
	}
	avatarOutcome := migrator.attachments.MigrateImage(executionContext, user.AvatarURL)
	if !avatarOutcome.Available() {
		migrator.logger.Debug(avatarUploadFailedMessageConstant, zap.String(userIDFieldNameConstant, user.ID))
		return
	}
	update.AvatarFileID = avatarOutcome.Value
}
