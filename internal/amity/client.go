package amity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/socialmigrate/internal/scheduler"
	"github.com/temirov/socialmigrate/internal/transport"
)

const (
	authorizationHeaderConstant          = "Authorization"
	apiKeyHeaderConstant                 = "X-API-KEY"
	bearerTokenTemplateConstant          = "Bearer %s"
	regionBaseURLTemplateConstant        = "https://api.%s.amity.co"
	communitiesPathConstant              = "/api/v3/communities"
	communityUsersPathTemplateConstant   = "/api/v3/communities/%s/users"
	postsPathConstant                    = "/api/v4/posts"
	imagesPathConstant                   = "/api/v4/images"
	videosPathConstant                   = "/api/v4/videos"
	sessionsPathConstant                 = "/api/v3/sessions"
	usersPathConstant                    = "/api/v3/users"
	followingPathTemplateConstant        = "/api/v4/me/following/%s"
	commentsPathConstant                 = "/api/v3/comments"
	reactionsPathConstant                = "/api/v2/reactions"
	tagQueryKeyTemplateConstant          = "tags[%d]"
	targetTypeQueryKeyConstant           = "targetType"
	targetIDQueryKeyConstant             = "targetId"
	uploadFieldNameConstant              = "files"
	alreadyAcceptedMarkerConstant        = "already accepted"
	regionFieldNameConstant              = "region"
	apiKeyFieldNameConstant              = "api_key"
	adminTokenFieldNameConstant          = "admin_token"
	requiredValueMessageConstant         = "value required"
	unsupportedRegionTemplateConstant    = "unsupported region %q (expected one of %s)"
	invalidInputTemplateConstant         = "%s: %s"
	operationErrorTemplateConstant       = "%s operation failed: %v"
	missingEntityMessageConstant         = "response did not include the affected entity"
	senderMissingMessageConstant         = "destination sender not configured"
	schedulerMissingMessageConstant      = "destination scheduler not configured"
	regionListSeparatorConstant          = ", "
	followAlreadyAcceptedMessageConstant = "follow already accepted"
	followerFieldNameConstant            = "follow_target"
)

// Operation names reported in OperationError.
const (
	SearchCommunitiesOperation = OperationName("SearchCommunities")
	CreateCommunityOperation   = OperationName("CreateCommunity")
	SearchPostsOperation       = OperationName("SearchPosts")
	CreatePostOperation        = OperationName("CreatePost")
	UploadImageOperation       = OperationName("UploadImage")
	UploadVideoOperation       = OperationName("UploadVideo")
	CreateSessionOperation     = OperationName("CreateSession")
	UpsertUserOperation        = OperationName("UpsertUser")
	AddCommunityUsersOperation = OperationName("AddUsersToCommunity")
	FollowUserOperation        = OperationName("FollowUser")
	CreateCommentOperation     = OperationName("CreateComment")
	CreateReactionOperation    = OperationName("CreateReaction")
)

// Supported regions.
const (
	RegionUS = "us"
	RegionEU = "eu"
	RegionSG = "sg"
)

var supportedRegions = []string{RegionUS, RegionEU, RegionSG}

var (
	// ErrSenderNotConfigured indicates the client was built without a sender.
	ErrSenderNotConfigured = errors.New(senderMissingMessageConstant)
	// ErrSchedulerNotConfigured indicates the client was built without a scheduler.
	ErrSchedulerNotConfigured = errors.New(schedulerMissingMessageConstant)
	// ErrMissingEntity indicates a success response that did not echo the affected entity.
	ErrMissingEntity = errors.New(missingEntityMessageConstant)
)

// OperationName labels a destination operation.
type OperationName string

// OperationError wraps a failed destination operation.
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

// RegionBaseURL returns the API endpoint of a region.
func RegionBaseURL(region string) (string, error) {
	normalizedRegion := strings.ToLower(strings.TrimSpace(region))
	for _, supportedRegion := range supportedRegions {
		if normalizedRegion == supportedRegion {
			return fmt.Sprintf(regionBaseURLTemplateConstant, normalizedRegion), nil
		}
	}
	return "", InvalidInputError{
		FieldName: regionFieldNameConstant,
		Message:   fmt.Sprintf(unsupportedRegionTemplateConstant, region, strings.Join(supportedRegions, regionListSeparatorConstant)),
	}
}

// ClientConfiguration identifies the destination application. BaseURL overrides Region when set.
type ClientConfiguration struct {
	Region     string
	BaseURL    string
	APIKey     string
	AdminToken string
}

// ClientDependencies lists the collaborators of a Client.
type ClientDependencies struct {
	Sender    transport.Sender
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger
}

// Client writes to the destination service.
type Client struct {
	baseURL    string
	apiKey     string
	adminToken string
	sender     transport.Sender
	scheduler  *scheduler.Scheduler
	logger     *zap.Logger
}

// NewClient validates the configuration and constructs a Client.
func NewClient(configuration ClientConfiguration, dependencies ClientDependencies) (*Client, error) {
	if dependencies.Sender == nil {
		return nil, ErrSenderNotConfigured
	}
	if dependencies.Scheduler == nil {
		return nil, ErrSchedulerNotConfigured
	}
	if len(strings.TrimSpace(configuration.APIKey)) == 0 {
		return nil, InvalidInputError{FieldName: apiKeyFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(configuration.AdminToken)) == 0 {
		return nil, InvalidInputError{FieldName: adminTokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	baseURL := strings.TrimSpace(configuration.BaseURL)
	if len(baseURL) == 0 {
		regionURL, regionError := RegionBaseURL(configuration.Region)
		if regionError != nil {
			return nil, regionError
		}
		baseURL = regionURL
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     configuration.APIKey,
		adminToken: configuration.AdminToken,
		sender:     dependencies.Sender,
		scheduler:  dependencies.Scheduler,
		logger:     logger,
	}, nil
}

type communitiesEnvelope struct {
	Communities []Community `json:"communities"`
}

type postsEnvelope struct {
	Posts []Post `json:"posts"`
}

type usersEnvelope struct {
	Users []User `json:"users"`
}

type commentsEnvelope struct {
	Comments []Comment `json:"comments"`
}

type sessionEnvelope struct {
	AccessToken string `json:"accessToken"`
}

type uploadedFile struct {
	FileID string `json:"fileId"`
}

type communityUsersRequest struct {
	UserIDs []string `json:"userIds"`
}

// SearchCommunities lists communities carrying every tag of the query.
func (client *Client) SearchCommunities(executionContext context.Context, query CommunityQuery) ([]Community, error) {
	request := client.adminRequest(http.MethodGet, communitiesPathConstant, nil)
	request.Query = tagQuery(query.Tags)

	var envelope communitiesEnvelope
	if callError := client.callJSON(executionContext, SearchCommunitiesOperation, request, &envelope); callError != nil {
		return nil, callError
	}
	return envelope.Communities, nil
}

// CreateCommunity creates a community as the administrator.
func (client *Client) CreateCommunity(executionContext context.Context, creation CommunityCreation) (Community, error) {
	request := client.adminRequest(http.MethodPost, communitiesPathConstant, creation)

	var envelope communitiesEnvelope
	if callError := client.callJSON(executionContext, CreateCommunityOperation, request, &envelope); callError != nil {
		return Community{}, callError
	}
	if len(envelope.Communities) == 0 {
		return Community{}, OperationError{Operation: CreateCommunityOperation, Cause: ErrMissingEntity}
	}
	return envelope.Communities[0], nil
}

// SearchPosts lists posts of a target carrying every tag of the query.
func (client *Client) SearchPosts(executionContext context.Context, query PostQuery) ([]Post, error) {
	request := client.adminRequest(http.MethodGet, postsPathConstant, nil)
	request.Query = tagQuery(query.Tags)
	request.Query.Set(targetTypeQueryKeyConstant, query.TargetType)
	request.Query.Set(targetIDQueryKeyConstant, query.TargetID)

	var envelope postsEnvelope
	if callError := client.callJSON(executionContext, SearchPostsOperation, request, &envelope); callError != nil {
		return nil, callError
	}
	return envelope.Posts, nil
}

// CreatePost creates a post. An empty accessToken posts as the administrator.
func (client *Client) CreatePost(executionContext context.Context, accessToken string, creation PostCreation) (Post, error) {
	request := client.bearerRequest(http.MethodPost, postsPathConstant, client.tokenOrAdmin(accessToken), creation)

	var envelope postsEnvelope
	if callError := client.callJSON(executionContext, CreatePostOperation, request, &envelope); callError != nil {
		return Post{}, callError
	}
	if len(envelope.Posts) == 0 {
		return Post{}, OperationError{Operation: CreatePostOperation, Cause: ErrMissingEntity}
	}
	return envelope.Posts[0], nil
}

// UploadImage uploads an image file and returns its file id.
func (client *Client) UploadImage(executionContext context.Context, upload transport.FileUpload) (string, error) {
	return client.upload(executionContext, UploadImageOperation, imagesPathConstant, upload)
}

// UploadVideo uploads a video file and returns its file id.
func (client *Client) UploadVideo(executionContext context.Context, upload transport.FileUpload) (string, error) {
	return client.upload(executionContext, UploadVideoOperation, videosPathConstant, upload)
}

func (client *Client) upload(executionContext context.Context, operation OperationName, path string, upload transport.FileUpload) (string, error) {
	upload.FieldName = uploadFieldNameConstant
	request := client.adminRequest(http.MethodPost, path, nil)
	request.Upload = &upload

	var uploadedFiles []uploadedFile
	if callError := client.callJSON(executionContext, operation, request, &uploadedFiles); callError != nil {
		return "", callError
	}
	if len(uploadedFiles) == 0 || len(uploadedFiles[0].FileID) == 0 {
		return "", OperationError{Operation: operation, Cause: ErrMissingEntity}
	}
	return uploadedFiles[0].FileID, nil
}

// CreateSession registers a session for a user and returns its access token.
func (client *Client) CreateSession(executionContext context.Context, sessionRequest SessionRequest) (string, error) {
	request := transport.Request{
		Method:   http.MethodPost,
		URL:      client.baseURL + sessionsPathConstant,
		Headers:  map[string]string{apiKeyHeaderConstant: client.apiKey},
		JSONBody: sessionRequest,
	}

	var envelope sessionEnvelope
	if callError := client.callJSON(executionContext, CreateSessionOperation, request, &envelope); callError != nil {
		return "", callError
	}
	if len(envelope.AccessToken) == 0 {
		return "", OperationError{Operation: CreateSessionOperation, Cause: ErrMissingEntity}
	}
	return envelope.AccessToken, nil
}

// UpsertUser creates or updates a user profile and returns the stored record.
func (client *Client) UpsertUser(executionContext context.Context, update UserUpdate) (User, error) {
	request := client.adminRequest(http.MethodPut, usersPathConstant, update)
	request.Headers[apiKeyHeaderConstant] = client.apiKey

	var envelope usersEnvelope
	if callError := client.callJSON(executionContext, UpsertUserOperation, request, &envelope); callError != nil {
		return User{}, callError
	}
	for _, storedUser := range envelope.Users {
		if storedUser.UserID == update.UserID {
			return storedUser, nil
		}
	}
	return User{}, OperationError{Operation: UpsertUserOperation, Cause: ErrMissingEntity}
}

// AddUsersToCommunity adds the users as community members.
func (client *Client) AddUsersToCommunity(executionContext context.Context, communityID string, userIDs []string) error {
	request := client.adminRequest(http.MethodPost, fmt.Sprintf(communityUsersPathTemplateConstant, url.PathEscape(communityID)), communityUsersRequest{UserIDs: userIDs})
	_, callError := client.call(executionContext, AddCommunityUsersOperation, request)
	return callError
}

// FollowUser makes the session's user follow targetUserID. A request the
// destination reports as already accepted is not an error.
func (client *Client) FollowUser(executionContext context.Context, accessToken string, targetUserID string) (FollowStatus, error) {
	request := client.bearerRequest(http.MethodPost, fmt.Sprintf(followingPathTemplateConstant, url.PathEscape(targetUserID)), accessToken, nil)
	_, callError := client.call(executionContext, FollowUserOperation, request)
	if callError == nil {
		return FollowStatusCreated, nil
	}

	var rejection transport.RemoteRejectionError
	if errors.As(callError, &rejection) && strings.Contains(rejection.Message(), alreadyAcceptedMarkerConstant) {
		client.logger.Debug(followAlreadyAcceptedMessageConstant, zap.String(followerFieldNameConstant, targetUserID))
		return FollowStatusAlreadyAccepted, nil
	}
	return "", callError
}

// CreateComment creates a comment as the session's user.
func (client *Client) CreateComment(executionContext context.Context, accessToken string, creation CommentCreation) (Comment, error) {
	request := client.bearerRequest(http.MethodPost, commentsPathConstant, client.tokenOrAdmin(accessToken), creation)

	var envelope commentsEnvelope
	if callError := client.callJSON(executionContext, CreateCommentOperation, request, &envelope); callError != nil {
		return Comment{}, callError
	}
	if len(envelope.Comments) == 0 {
		return Comment{ReferenceID: creation.ReferenceID, ReferenceType: creation.ReferenceType}, nil
	}
	return envelope.Comments[0], nil
}

// CreateReaction adds a named reaction. An empty accessToken reacts as the administrator.
func (client *Client) CreateReaction(executionContext context.Context, accessToken string, creation ReactionCreation) error {
	request := client.bearerRequest(http.MethodPost, reactionsPathConstant, client.tokenOrAdmin(accessToken), creation)
	_, callError := client.call(executionContext, CreateReactionOperation, request)
	return callError
}

func (client *Client) call(executionContext context.Context, operation OperationName, request transport.Request) (transport.Response, error) {
	response, sendError := scheduler.Run(executionContext, client.scheduler, func(taskContext context.Context) (transport.Response, error) {
		return client.sender.Send(taskContext, request)
	})
	if sendError != nil {
		return transport.Response{}, OperationError{Operation: operation, Cause: sendError}
	}
	return response, nil
}

func (client *Client) callJSON(executionContext context.Context, operation OperationName, request transport.Request, target any) error {
	response, callError := client.call(executionContext, operation, request)
	if callError != nil {
		return callError
	}
	if decodeError := response.DecodeJSON(request, target); decodeError != nil {
		return OperationError{Operation: operation, Cause: decodeError}
	}
	return nil
}

func (client *Client) adminRequest(method string, path string, body any) transport.Request {
	return client.bearerRequest(method, path, client.adminToken, body)
}

func (client *Client) bearerRequest(method string, path string, accessToken string, body any) transport.Request {
	return transport.Request{
		Method:   method,
		URL:      client.baseURL + path,
		Headers:  map[string]string{authorizationHeaderConstant: fmt.Sprintf(bearerTokenTemplateConstant, accessToken)},
		JSONBody: body,
	}
}

func (client *Client) tokenOrAdmin(accessToken string) string {
	if len(strings.TrimSpace(accessToken)) == 0 {
		return client.adminToken
	}
	return accessToken
}

func tagQuery(tags []string) url.Values {
	query := url.Values{}
	for tagIndex, tag := range tags {
		query.Set(fmt.Sprintf(tagQueryKeyTemplateConstant, tagIndex), tag)
	}
	return query
}
