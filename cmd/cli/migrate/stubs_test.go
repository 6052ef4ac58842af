package migrate_test

import (
	"context"
	"errors"
	"sync"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/pagination"
	"github.com/temirov/socialmigrate/internal/prompt"
	"github.com/temirov/socialmigrate/internal/transport"
)

var errStubRejected = errors.New("stub rejected")

func emptyFetcher[T any]() *pagination.Fetcher[T] {
	return pagination.NewFetcher(func(context.Context, pagination.Cursor) (pagination.Page[T], error) {
		return pagination.Page[T]{}, nil
	})
}

type stubGroupSource struct {
	groups    []getsocial.Group
	listError error
}

func (source *stubGroupSource) ListGroups(context.Context) ([]getsocial.Group, error) {
	return source.groups, source.listError
}

func (source *stubGroupSource) GroupMembers(string) *pagination.Fetcher[getsocial.GroupMember] {
	return emptyFetcher[getsocial.GroupMember]()
}

func (source *stubGroupSource) UserFollowers(string) *pagination.Fetcher[getsocial.User] {
	return emptyFetcher[getsocial.User]()
}

func (source *stubGroupSource) GroupPosts(string) *pagination.Fetcher[getsocial.Activity] {
	return emptyFetcher[getsocial.Activity]()
}

func (source *stubGroupSource) PostReactions(string) *pagination.Fetcher[getsocial.Reaction] {
	return emptyFetcher[getsocial.Reaction]()
}

func (source *stubGroupSource) PostComments(string) *pagination.Fetcher[getsocial.Activity] {
	return emptyFetcher[getsocial.Activity]()
}

// stubDestination creates one community per call and rejects display names listed in rejectCommunities.
type stubDestination struct {
	mutex             sync.Mutex
	createdNames      []string
	rejectCommunities map[string]bool
}

func (destination *stubDestination) SearchCommunities(context.Context, amity.CommunityQuery) ([]amity.Community, error) {
	return nil, nil
}

func (destination *stubDestination) CreateCommunity(_ context.Context, creation amity.CommunityCreation) (amity.Community, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	if destination.rejectCommunities[creation.DisplayName] {
		return amity.Community{}, errStubRejected
	}
	destination.createdNames = append(destination.createdNames, creation.DisplayName)
	return amity.Community{CommunityID: "community-" + creation.DisplayName, DisplayName: creation.DisplayName, Tags: creation.Tags}, nil
}

func (destination *stubDestination) SearchPosts(context.Context, amity.PostQuery) ([]amity.Post, error) {
	return nil, nil
}

func (destination *stubDestination) CreatePost(context.Context, string, amity.PostCreation) (amity.Post, error) {
	return amity.Post{}, errStubRejected
}

func (destination *stubDestination) UploadImage(context.Context, transport.FileUpload) (string, error) {
	return "", errStubRejected
}

func (destination *stubDestination) UploadVideo(context.Context, transport.FileUpload) (string, error) {
	return "", errStubRejected
}

func (destination *stubDestination) CreateSession(_ context.Context, request amity.SessionRequest) (string, error) {
	return "token-" + request.UserID, nil
}

func (destination *stubDestination) UpsertUser(_ context.Context, update amity.UserUpdate) (amity.User, error) {
	return amity.User{UserID: update.UserID}, nil
}

func (destination *stubDestination) AddUsersToCommunity(context.Context, string, []string) error {
	return nil
}

func (destination *stubDestination) FollowUser(context.Context, string, string) (amity.FollowStatus, error) {
	return amity.FollowStatusCreated, nil
}

func (destination *stubDestination) CreateComment(context.Context, string, amity.CommentCreation) (amity.Comment, error) {
	return amity.Comment{}, errStubRejected
}

func (destination *stubDestination) CreateReaction(context.Context, string, amity.ReactionCreation) error {
	return errStubRejected
}

type stubDownloader struct{}

func (stubDownloader) Download(context.Context, string, string) (transport.FileUpload, error) {
	return transport.FileUpload{}, errStubRejected
}

// scriptedPrompter answers questions from a map and selections by value.
type scriptedPrompter struct {
	answers       map[string]string
	selection     string
	questions     []string
	offeredValues []string
}

func (prompter *scriptedPrompter) Ask(question string, defaultValue string) (string, error) {
	prompter.questions = append(prompter.questions, question)
	if answer, found := prompter.answers[question]; found {
		return answer, nil
	}
	return defaultValue, nil
}

func (prompter *scriptedPrompter) Select(question string, choices []prompt.Choice) (prompt.Choice, error) {
	prompter.questions = append(prompter.questions, question)
	for _, choice := range choices {
		prompter.offeredValues = append(prompter.offeredValues, choice.Value)
	}
	for _, choice := range choices {
		if choice.Value == prompter.selection {
			return choice, nil
		}
	}
	return prompt.Choice{}, prompt.ErrNoAnswer
}
