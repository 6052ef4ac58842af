package migration_test

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"sync"

	"github.com/temirov/socialmigrate/internal/amity"
	"github.com/temirov/socialmigrate/internal/getsocial"
	"github.com/temirov/socialmigrate/internal/pagination"
	"github.com/temirov/socialmigrate/internal/transport"
)

var errStubRejected = errors.New("stub rejected")

// sliceFetcher serves items in pages of pageSize, issuing numeric cursors.
func sliceFetcher[T any](items []T, pageSize int) *pagination.Fetcher[T] {
	if pageSize <= 0 {
		pageSize = len(items) + 1
	}
	return pagination.NewFetcher(func(_ context.Context, cursor pagination.Cursor) (pagination.Page[T], error) {
		start := 0
		if cursor != pagination.NoCursor {
			parsed, parseError := strconv.Atoi(string(cursor))
			if parseError != nil {
				return pagination.Page[T]{}, parseError
			}
			start = parsed
		}
		end := min(start+pageSize, len(items))
		page := pagination.Page[T]{Items: items[start:end]}
		if end < len(items) {
			page.NextCursor = pagination.Cursor(strconv.Itoa(end))
		}
		return page, nil
	})
}

type stubSource struct {
	pageSize  int
	members   map[string][]getsocial.GroupMember
	followers map[string][]getsocial.User
	posts     map[string][]getsocial.Activity
	reactions map[string][]getsocial.Reaction
	comments  map[string][]getsocial.Activity
}

func (source *stubSource) GroupMembers(groupID string) *pagination.Fetcher[getsocial.GroupMember] {
	return sliceFetcher(source.members[groupID], source.pageSize)
}

func (source *stubSource) UserFollowers(userID string) *pagination.Fetcher[getsocial.User] {
	return sliceFetcher(source.followers[userID], source.pageSize)
}

func (source *stubSource) GroupPosts(groupID string) *pagination.Fetcher[getsocial.Activity] {
	return sliceFetcher(source.posts[groupID], source.pageSize)
}

func (source *stubSource) PostReactions(postID string) *pagination.Fetcher[getsocial.Reaction] {
	return sliceFetcher(source.reactions[postID], source.pageSize)
}

func (source *stubSource) PostComments(postID string) *pagination.Fetcher[getsocial.Activity] {
	return sliceFetcher(source.comments[postID], source.pageSize)
}

type followCall struct {
	accessToken  string
	targetUserID string
}

type reactionCall struct {
	accessToken string
	creation    amity.ReactionCreation
}

type commentCall struct {
	accessToken string
	creation    amity.CommentCreation
}

type postCall struct {
	accessToken string
	creation    amity.PostCreation
}

// stubDestination stores created entities in memory. Tag searches match by
// substring to mimic a loose remote search.
type stubDestination struct {
	mutex sync.Mutex

	communities []amity.Community
	posts       []amity.Post

	communityCreations []amity.CommunityCreation
	postCalls          []postCall
	uploads            []string
	sessionRequests    []amity.SessionRequest
	userUpdates        []amity.UserUpdate
	communityBatches   [][]string
	follows            []followCall
	comments           []commentCall
	reactions          []reactionCall

	rejectUploads    map[string]bool
	rejectPostText   map[string]bool
	rejectUsers      map[string]bool
	rejectComments   map[string]bool
	rejectReactions  map[string]bool
	acceptedFollows  map[string]bool
	rejectCommunity  bool
	rejectMembership bool
}

func (destination *stubDestination) SearchCommunities(_ context.Context, query amity.CommunityQuery) ([]amity.Community, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	var matches []amity.Community
	for _, community := range destination.communities {
		if looselyTagged(community.Tags, query.Tags) {
			matches = append(matches, community)
		}
	}
	return matches, nil
}

func (destination *stubDestination) CreateCommunity(_ context.Context, creation amity.CommunityCreation) (amity.Community, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.communityCreations = append(destination.communityCreations, creation)
	if destination.rejectCommunity {
		return amity.Community{}, errStubRejected
	}
	community := amity.Community{
		CommunityID:  fmt.Sprintf("community-%d", len(destination.communities)+1),
		DisplayName:  creation.DisplayName,
		Tags:         creation.Tags,
		IsPublic:     creation.IsPublic,
		AvatarFileID: creation.AvatarFileID,
		Metadata:     creation.Metadata,
	}
	destination.communities = append(destination.communities, community)
	return community, nil
}

func (destination *stubDestination) SearchPosts(_ context.Context, query amity.PostQuery) ([]amity.Post, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	var matches []amity.Post
	for _, post := range destination.posts {
		if post.TargetID == query.TargetID && looselyTagged(post.Tags, query.Tags) {
			matches = append(matches, post)
		}
	}
	return matches, nil
}

func (destination *stubDestination) CreatePost(_ context.Context, accessToken string, creation amity.PostCreation) (amity.Post, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.postCalls = append(destination.postCalls, postCall{accessToken: accessToken, creation: creation})
	if destination.rejectPostText[creation.Data.Text] {
		return amity.Post{}, errStubRejected
	}
	post := amity.Post{
		PostID:      fmt.Sprintf("post-%d", len(destination.posts)+1),
		TargetType:  creation.TargetType,
		TargetID:    creation.TargetID,
		Tags:        creation.Tags,
		Data:        creation.Data,
		Attachments: creation.Attachments,
	}
	destination.posts = append(destination.posts, post)
	return post, nil
}

func (destination *stubDestination) UploadImage(_ context.Context, upload transport.FileUpload) (string, error) {
	return destination.upload("image", upload)
}

func (destination *stubDestination) UploadVideo(_ context.Context, upload transport.FileUpload) (string, error) {
	return destination.upload("video", upload)
}

func (destination *stubDestination) upload(kind string, upload transport.FileUpload) (string, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.uploads = append(destination.uploads, upload.FileName)
	if destination.rejectUploads[upload.FileName] {
		return "", errStubRejected
	}
	return kind + "-" + upload.FileName, nil
}

func (destination *stubDestination) CreateSession(_ context.Context, request amity.SessionRequest) (string, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.sessionRequests = append(destination.sessionRequests, request)
	return "token-" + request.UserID, nil
}

func (destination *stubDestination) UpsertUser(_ context.Context, update amity.UserUpdate) (amity.User, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.userUpdates = append(destination.userUpdates, update)
	if destination.rejectUsers[update.UserID] {
		return amity.User{}, errStubRejected
	}
	return amity.User{UserID: update.UserID, DisplayName: update.DisplayName}, nil
}

func (destination *stubDestination) AddUsersToCommunity(_ context.Context, _ string, userIDs []string) error {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	if destination.rejectMembership {
		return errStubRejected
	}
	batch := slices.Clone(userIDs)
	slices.Sort(batch)
	destination.communityBatches = append(destination.communityBatches, batch)
	return nil
}

func (destination *stubDestination) FollowUser(_ context.Context, accessToken string, targetUserID string) (amity.FollowStatus, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.follows = append(destination.follows, followCall{accessToken: accessToken, targetUserID: targetUserID})
	if destination.acceptedFollows[targetUserID] {
		return amity.FollowStatusAlreadyAccepted, nil
	}
	return amity.FollowStatusCreated, nil
}

func (destination *stubDestination) CreateComment(_ context.Context, accessToken string, creation amity.CommentCreation) (amity.Comment, error) {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.comments = append(destination.comments, commentCall{accessToken: accessToken, creation: creation})
	if destination.rejectComments[creation.Data.Text] {
		return amity.Comment{}, errStubRejected
	}
	for postIndex := range destination.posts {
		if destination.posts[postIndex].PostID == creation.ReferenceID {
			destination.posts[postIndex].CommentsCount++
		}
	}
	return amity.Comment{CommentID: fmt.Sprintf("comment-%d", len(destination.comments)), ReferenceID: creation.ReferenceID, Data: creation.Data}, nil
}

func (destination *stubDestination) CreateReaction(_ context.Context, accessToken string, creation amity.ReactionCreation) error {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	destination.reactions = append(destination.reactions, reactionCall{accessToken: accessToken, creation: creation})
	if destination.rejectReactions[creation.ReactionName] {
		return errStubRejected
	}
	return nil
}

func (destination *stubDestination) commentTexts() []string {
	destination.mutex.Lock()
	defer destination.mutex.Unlock()
	texts := make([]string, 0, len(destination.comments))
	for _, call := range destination.comments {
		texts = append(texts, call.creation.Data.Text)
	}
	return texts
}

func looselyTagged(entityTags []string, queryTags []string) bool {
	for _, queryTag := range queryTags {
		matched := false
		for _, entityTag := range entityTags {
			if len(entityTag) >= len(queryTag) && entityTag[:len(queryTag)] == queryTag {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

type stubDownloader struct {
	mutex     sync.Mutex
	downloads []string
}

func (downloader *stubDownloader) Download(_ context.Context, fileURL string, fieldName string) (transport.FileUpload, error) {
	downloader.mutex.Lock()
	downloader.downloads = append(downloader.downloads, fileURL)
	downloader.mutex.Unlock()
	return transport.FileUpload{FieldName: fieldName, FileName: path.Base(fileURL), ContentType: "application/octet-stream", Content: []byte(fileURL)}, nil
}

type stubLedger struct {
	mutex     sync.Mutex
	completed map[string]bool
}

func newStubLedger() *stubLedger {
	return &stubLedger{completed: map[string]bool{}}
}

func (ledger *stubLedger) IsCompleted(_ context.Context, key string) (bool, error) {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	return ledger.completed[key], nil
}

func (ledger *stubLedger) MarkCompleted(_ context.Context, key string) error {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	ledger.completed[key] = true
	return nil
}

func textActivity(identifier string, text string, author *getsocial.User) getsocial.Activity {
	return getsocial.Activity{
		ID:      identifier,
		Kind:    getsocial.ActivityKindPost,
		Author:  getsocial.Author{User: author},
		Content: []getsocial.Content{{Text: text}},
	}
}
