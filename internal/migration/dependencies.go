package migration

import (
	"context"
	"errors"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/pagination"
	"github.com/temirov/socialmigrate/internal/transport"
)

const (
	sourceMissingMessageConstant      = "source reader not configured"
	destinationMissingMessageConstant = "destination writer not configured"
	downloaderMissingMessageConstant  = "media downloader not configured"
)

var (
	// ErrSourceNotConfigured indicates the orchestrator was built without a source reader.
	ErrSourceNotConfigured = errors.New(sourceMissingMessageConstant)
	// ErrDestinationNotConfigured indicates the orchestrator was built without a destination writer.
	ErrDestinationNotConfigured = errors.New(destinationMissingMessageConstant)
	// ErrDownloaderNotConfigured indicates the orchestrator was built without a media downloader.
	ErrDownloaderNotConfigured = errors.New(downloaderMissingMessageConstant)
)

// SourceReader exposes the paginated source listings consumed by a migration.
type SourceReader interface {
	GroupMembers(groupID string) *pagination.Fetcher[getsocial.GroupMember]
	UserFollowers(userID string) *pagination.Fetcher[getsocial.User]
	GroupPosts(groupID string) *pagination.Fetcher[getsocial.Activity]
	PostReactions(postID string) *pagination.Fetcher[getsocial.Reaction]
	PostComments(postID string) *pagination.Fetcher[getsocial.Activity]
}

// CommunityDestination finds and creates communities.
type CommunityDestination interface {
	SearchCommunities(executionContext context.Context, query amity.CommunityQuery) ([]amity.Community, error)
	CreateCommunity(executionContext context.Context, creation amity.CommunityCreation) (amity.Community, error)
}

// PostDestination finds and creates posts.
type PostDestination interface {
	SearchPosts(executionContext context.Context, query amity.PostQuery) ([]amity.Post, error)
	CreatePost(executionContext context.Context, accessToken string, creation amity.PostCreation) (amity.Post, error)
}

// MediaDestination stores uploaded media.
type MediaDestination interface {
	UploadImage(executionContext context.Context, upload transport.FileUpload) (string, error)
	UploadVideo(executionContext context.Context, upload transport.FileUpload) (string, error)
}

// SessionDestination issues per-user access tokens.
type SessionDestination interface {
	CreateSession(executionContext context.Context, request amity.SessionRequest) (string, error)
}

// UserDestination upserts user profiles.
type UserDestination interface {
	UpsertUser(executionContext context.Context, update amity.UserUpdate) (amity.User, error)
}

// MembershipDestination records community membership and follow relationships.
type MembershipDestination interface {
	AddUsersToCommunity(executionContext context.Context, communityID string, userIDs []string) error
	FollowUser(executionContext context.Context, accessToken string, targetUserID string) (amity.FollowStatus, error)
}

// CommentDestination creates comments.
type CommentDestination interface {
	CreateComment(executionContext context.Context, accessToken string, creation amity.CommentCreation) (amity.Comment, error)
}

// ReactionDestination creates reactions.
type ReactionDestination interface {
	CreateReaction(executionContext context.Context, accessToken string, creation amity.ReactionCreation) error
}

// Destination is every destination capability a migration needs.
type Destination interface {
	CommunityDestination
	PostDestination
	MediaDestination
	SessionDestination
	UserDestination
	MembershipDestination
	CommentDestination
	ReactionDestination
}

// MediaDownloader fetches source media for re-upload.
type MediaDownloader interface {
	Download(executionContext context.Context, fileURL string, fieldName string) (transport.FileUpload, error)
}
