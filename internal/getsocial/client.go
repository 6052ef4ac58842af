package getsocial

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/pagination"
	"github.com/temirov/socialmigrate/internal/scheduler"
	"github.com/temirov/socialmigrate/internal/transport"
)

const (
	apiKeyHeaderConstant                 = "X-GetSocial-API-Key"
	apiVersionPathConstant               = "/v1"
	groupsSearchPathConstant             = "/communities/groups/search"
	groupMembersPathConstant             = "/communities/groups/members"
	followersPathConstant                = "/communities/followers"
	activitiesSearchPathConstant         = "/communities/activities/search"
	activityReactionsPathConstant        = "/communities/activities/reactions"
	appIDQueryKeyConstant                = "app_id"
	identifierQueryKeyConstant           = "id"
	limitQueryKeyConstant                = "limit"
	statusQueryKeyConstant               = "status"
	nextCursorQueryKeyConstant           = "next_cursor"
	entityTypeQueryKeyConstant           = "entity_type"
	entityIDQueryKeyConstant             = "entity_id"
	userEntityTypeConstant               = "user"
	approvedStatusConstant               = "approved"
	withoutPollsFilterConstant           = "onlyWithoutPolls"
	groupTargetTypeConstant              = "group"
	activityTargetTypeConstant           = "activity"
	defaultPageLimitConstant             = 10
	appIDFieldNameConstant               = "app_id"
	apiKeyFieldNameConstant              = "api_key"
	baseURLFieldNameConstant             = "base_url"
	requiredValueMessageConstant         = "value required"
	invalidInputTemplateConstant         = "%s: %s"
	operationErrorTemplateConstant       = "%s operation failed: %v"
	senderMissingMessageConstant         = "source sender not configured"
	schedulerMissingMessageConstant      = "source scheduler not configured"
	listGroupsOperationConstant          = OperationName("ListGroups")
	groupMembersOperationConstant        = OperationName("ListGroupMembers")
	userFollowersOperationConstant       = OperationName("ListUserFollowers")
	groupPostsOperationConstant          = OperationName("ListGroupPosts")
	postReactionsOperationConstant       = OperationName("ListPostReactions")
	postCommentsOperationConstant        = OperationName("ListPostComments")
	pageRetrievedMessageConstant         = "source page retrieved"
	operationFieldNameConstant           = "operation"
	entityIDFieldNameConstant            = "entity_id"
	itemCountFieldNameConstant           = "item_count"
	hasNextPageFieldNameConstant         = "has_next_page"
)

// OperationName labels a source listing operation.
type OperationName string

// OperationError wraps a failed source listing.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the failure.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the transport or rejection error.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// InvalidInputError describes rejected client configuration.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

var (
	// ErrSenderNotConfigured indicates the client was built without a sender.
	ErrSenderNotConfigured = errors.New(senderMissingMessageConstant)
	// ErrSchedulerNotConfigured indicates the client was built without a scheduler.
	ErrSchedulerNotConfigured = errors.New(schedulerMissingMessageConstant)
)

// ClientConfiguration identifies the source application.
type ClientConfiguration struct {
	BaseURL   string
	AppID     string
	APIKey    string
	PageLimit int
}

// ClientDependencies lists the collaborators of a Client.
type ClientDependencies struct {
	Sender    transport.Sender
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger
}

// Client reads the source service.
type Client struct {
	configuration ClientConfiguration
	sender        transport.Sender
	scheduler     *scheduler.Scheduler
	logger        *zap.Logger
}

// NewClient validates the configuration and constructs a Client.
func NewClient(configuration ClientConfiguration, dependencies ClientDependencies) (*Client, error) {
	if dependencies.Sender == nil {
		return nil, ErrSenderNotConfigured
	}
	if dependencies.Scheduler == nil {
		return nil, ErrSchedulerNotConfigured
	}
	if len(strings.TrimSpace(configuration.BaseURL)) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(configuration.AppID)) == 0 {
		return nil, InvalidInputError{FieldName: appIDFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(configuration.APIKey)) == 0 {
		return nil, InvalidInputError{FieldName: apiKeyFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if configuration.PageLimit <= 0 {
		configuration.PageLimit = defaultPageLimitConstant
	}
	configuration.BaseURL = strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		configuration: configuration,
		sender:        dependencies.Sender,
		scheduler:     dependencies.Scheduler,
		logger:        logger,
	}, nil
}

type listEnvelope[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"next_cursor"`
}

type reactionEnvelope struct {
	Reactions  []Reaction `json:"reactions"`
	NextCursor string     `json:"next_cursor"`
}

type activityTarget struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type activitySearchRequest struct {
	AppID      string         `json:"app_id"`
	WithPolls  string         `json:"withPolls,omitempty"`
	Status     string         `json:"status"`
	Target     activityTarget `json:"target"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type groupSearchRequest struct {
	AppID      string `json:"app_id"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ListGroups returns every group of the source application.
func (client *Client) ListGroups(executionContext context.Context) ([]Group, error) {
	return client.Groups().Collect(executionContext)
}

// Groups walks the group listing.
func (client *Client) Groups() *pagination.Fetcher[Group] {
	return pagination.NewFetcher(func(executionContext context.Context, cursor pagination.Cursor) (pagination.Page[Group], error) {
		request := client.postRequest(groupsSearchPathConstant, groupSearchRequest{
			AppID:      client.configuration.AppID,
			NextCursor: string(cursor),
		})
		return fetchListPage[Group](executionContext, client, listGroupsOperationConstant, client.configuration.AppID, request)
	})
}

// GroupMembersPage returns one page of approved group members.
func (client *Client) GroupMembersPage(executionContext context.Context, groupID string, cursor pagination.Cursor) (pagination.Page[GroupMember], error) {
	query := client.baseQuery(cursor)
	query.Set(identifierQueryKeyConstant, groupID)
	query.Set(statusQueryKeyConstant, approvedStatusConstant)
	request := client.getRequest(groupMembersPathConstant, query)
	return fetchListPage[GroupMember](executionContext, client, groupMembersOperationConstant, groupID, request)
}

// GroupMembers walks the approved members of a group.
func (client *Client) GroupMembers(groupID string) *pagination.Fetcher[GroupMember] {
	return pagination.NewFetcher(func(executionContext context.Context, cursor pagination.Cursor) (pagination.Page[GroupMember], error) {
		return client.GroupMembersPage(executionContext, groupID, cursor)
	})
}

// UserFollowersPage returns one page of users following userID.
func (client *Client) UserFollowersPage(executionContext context.Context, userID string, cursor pagination.Cursor) (pagination.Page[User], error) {
	query := client.baseQuery(cursor)
	query.Set(entityTypeQueryKeyConstant, userEntityTypeConstant)
	query.Set(entityIDQueryKeyConstant, userID)
	request := client.getRequest(followersPathConstant, query)
	return fetchListPage[User](executionContext, client, userFollowersOperationConstant, userID, request)
}

// UserFollowers walks the followers of a user.
func (client *Client) UserFollowers(userID string) *pagination.Fetcher[User] {
	return pagination.NewFetcher(func(executionContext context.Context, cursor pagination.Cursor) (pagination.Page[User], error) {
		return client.UserFollowersPage(executionContext, userID, cursor)
	})
}

// GroupPostsPage returns one page of approved posts without polls.
func (client *Client) GroupPostsPage(executionContext context.Context, groupID string, cursor pagination.Cursor) (pagination.Page[Activity], error) {
	request := client.postRequest(activitiesSearchPathConstant, activitySearchRequest{
		AppID:      client.configuration.AppID,
		WithPolls:  withoutPollsFilterConstant,
		Status:     approvedStatusConstant,
		Target:     activityTarget{Type: groupTargetTypeConstant, ID: groupID},
		NextCursor: string(cursor),
	})
	return fetchListPage[Activity](executionContext, client, groupPostsOperationConstant, groupID, request)
}

// GroupPosts walks the posts of a group.
func (client *Client) GroupPosts(groupID string) *pagination.Fetcher[Activity] {
	return pagination.NewFetcher(func(executionContext context.Context, cursor pagination.Cursor) (pagination.Page[Activity], error) {
		return client.GroupPostsPage(executionContext, groupID, cursor)
	})
}

// PostCommentsPage returns one page of approved comments on a post.
func (client *Client) PostCommentsPage(executionContext context.Context, postID string, cursor pagination.Cursor) (pagination.Page[Activity], error) {
	request := client.postRequest(activitiesSearchPathConstant, activitySearchRequest{
		AppID:      client.configuration.AppID,
		Status:     approvedStatusConstant,
		Target:     activityTarget{Type: activityTargetTypeConstant, ID: postID},
		NextCursor: string(cursor),
	})
	return fetchListPage[Activity](executionContext, client, postCommentsOperationConstant, postID, request)
}

// PostComments walks the comments of a post.
func (client *Client) PostComments(postID string) *pagination.Fetcher[Activity] {
	return pagination.NewFetcher(func(executionContext context.Context, cursor pagination.Cursor) (pagination.Page[Activity], error) {
		return client.PostCommentsPage(executionContext, postID, cursor)
	})
}

// PostReactionsPage returns one page of reactions on a post.
func (client *Client) PostReactionsPage(executionContext context.Context, postID string, cursor pagination.Cursor) (pagination.Page[Reaction], error) {
	query := client.baseQuery(cursor)
	query.Set(identifierQueryKeyConstant, postID)
	request := client.getRequest(activityReactionsPathConstant, query)

	response, sendError := client.send(executionContext, request)
	if sendError != nil {
		return pagination.Page[Reaction]{}, OperationError{Operation: postReactionsOperationConstant, Cause: sendError}
	}
	var envelope reactionEnvelope
	if decodeError := response.DecodeJSON(request, &envelope); decodeError != nil {
		return pagination.Page[Reaction]{}, OperationError{Operation: postReactionsOperationConstant, Cause: decodeError}
	}
	client.logPage(postReactionsOperationConstant, postID, len(envelope.Reactions), envelope.NextCursor)
	return pagination.Page[Reaction]{Items: envelope.Reactions, NextCursor: pagination.Cursor(envelope.NextCursor)}, nil
}

// PostReactions walks the reactions of a post.
func (client *Client) PostReactions(postID string) *pagination.Fetcher[Reaction] {
	return pagination.NewFetcher(func(executionContext context.Context, cursor pagination.Cursor) (pagination.Page[Reaction], error) {
		return client.PostReactionsPage(executionContext, postID, cursor)
	})
}

func fetchListPage[T any](executionContext context.Context, client *Client, operation OperationName, entityID string, request transport.Request) (pagination.Page[T], error) {
	response, sendError := client.send(executionContext, request)
	if sendError != nil {
		return pagination.Page[T]{}, OperationError{Operation: operation, Cause: sendError}
	}
	var envelope listEnvelope[T]
	if decodeError := response.DecodeJSON(request, &envelope); decodeError != nil {
		return pagination.Page[T]{}, OperationError{Operation: operation, Cause: decodeError}
	}
	client.logPage(operation, entityID, len(envelope.Data), envelope.NextCursor)
	return pagination.Page[T]{Items: envelope.Data, NextCursor: pagination.Cursor(envelope.NextCursor)}, nil
}

func (client *Client) send(executionContext context.Context, request transport.Request) (transport.Response, error) {
	return scheduler.Run(executionContext, client.scheduler, func(taskContext context.Context) (transport.Response, error) {
		return client.sender.Send(taskContext, request)
	})
}

func (client *Client) logPage(operation OperationName, entityID string, itemCount int, nextCursor string) {
	client.logger.Debug(
		pageRetrievedMessageConstant,
		zap.String(operationFieldNameConstant, string(operation)),
		zap.String(entityIDFieldNameConstant, entityID),
		zap.Int(itemCountFieldNameConstant, itemCount),
		zap.Bool(hasNextPageFieldNameConstant, len(nextCursor) > 0),
	)
}

func (client *Client) baseQuery(cursor pagination.Cursor) url.Values {
	query := url.Values{}
	query.Set(appIDQueryKeyConstant, client.configuration.AppID)
	query.Set(limitQueryKeyConstant, strconv.Itoa(client.configuration.PageLimit))
	if cursor != pagination.NoCursor {
		query.Set(nextCursorQueryKeyConstant, string(cursor))
	}
	return query
}

func (client *Client) getRequest(path string, query url.Values) transport.Request {
	return transport.Request{
		Method:  http.MethodGet,
		URL:     client.endpoint(path),
		Query:   query,
		Headers: client.headers(),
	}
}

func (client *Client) postRequest(path string, body any) transport.Request {
	return transport.Request{
		Method:   http.MethodPost,
		URL:      client.endpoint(path),
		Headers:  client.headers(),
		JSONBody: body,
	}
}

func (client *Client) endpoint(path string) string {
	return client.configuration.BaseURL + apiVersionPathConstant + path
}

func (client *Client) headers() map[string]string {
	return map[string]string{apiKeyHeaderConstant: client.configuration.APIKey}
}
