package amity

// AttachmentType distinguishes image from video attachments.
type AttachmentType string

// Supported attachment types.
const (
	AttachmentTypeImage AttachmentType = "image"
	AttachmentTypeVideo AttachmentType = "video"
)

// Attachment references an uploaded file.
type Attachment struct {
	FileID string         `json:"fileId"`
	Type   AttachmentType `json:"type"`
}

// Community is a destination community.
type Community struct {
	ID               string         `json:"_id"`
	CommunityID      string         `json:"communityId"`
	ChannelID        string         `json:"channelId"`
	DisplayName      string         `json:"displayName"`
	Description      string         `json:"description"`
	AvatarFileID     string         `json:"avatarFileId"`
	IsPublic         bool           `json:"isPublic"`
	OnlyAdminCanPost bool           `json:"onlyAdminCanPost"`
	Tags             []string       `json:"tags"`
	Metadata         map[string]any `json:"metadata"`
	PostsCount       int            `json:"postsCount"`
	MembersCount     int            `json:"membersCount"`
}

// TextData is the text body of a post or comment.
type TextData struct {
	Text string `json:"text"`
}

// Post is a destination post.
type Post struct {
	ID             string         `json:"_id"`
	PostID         string         `json:"postId"`
	TargetType     string         `json:"targetType"`
	TargetID       string         `json:"targetId"`
	PostedUserID   string         `json:"postedUserId"`
	CommentsCount  int            `json:"commentsCount"`
	ReactionsCount int            `json:"reactionsCount"`
	Tags           []string       `json:"tags"`
	Data           TextData       `json:"data"`
	Metadata       map[string]any `json:"metadata"`
	Attachments    []Attachment   `json:"attachments"`
	CreatedAt      string         `json:"createdAt"`
}

// Comment is a destination comment.
type Comment struct {
	ID            string         `json:"_id"`
	CommentID     string         `json:"commentId"`
	UserID        string         `json:"userId"`
	ReferenceID   string         `json:"referenceId"`
	ReferenceType string         `json:"referenceType"`
	Data          TextData       `json:"data"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     string         `json:"createdAt"`
}

// User is a destination user profile.
type User struct {
	ID              string         `json:"_id"`
	UserID          string         `json:"userId"`
	DisplayName     string         `json:"displayName"`
	Roles           []string       `json:"roles"`
	AvatarFileID    string         `json:"avatarFileId"`
	AvatarCustomURL string         `json:"avatarCustomUrl"`
	Metadata        map[string]any `json:"metadata"`
}

// CommunityCreation describes a community to create.
type CommunityCreation struct {
	DisplayName      string         `json:"displayName"`
	Description      string         `json:"description"`
	Tags             []string       `json:"tags"`
	IsPublic         bool           `json:"isPublic"`
	OnlyAdminCanPost bool           `json:"onlyAdminCanPost"`
	Metadata         map[string]any `json:"metadata"`
	AvatarFileID     string         `json:"avatarFileId,omitempty"`
}

// PostCreation describes a post to create inside a target.
type PostCreation struct {
	Data        TextData       `json:"data"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Tags        []string       `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   string         `json:"createdAt"`
	TargetType  string         `json:"targetType"`
	TargetID    string         `json:"targetId"`
}

// CommentCreation describes a comment on a referenced entity.
type CommentCreation struct {
	ReferenceID   string         `json:"referenceId"`
	ReferenceType string         `json:"referenceType"`
	Data          TextData       `json:"data"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     string         `json:"createdAt"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
}

// ReactionCreation describes a named reaction on a referenced entity.
type ReactionCreation struct {
	ReferenceID   string `json:"referenceId"`
	ReferenceType string `json:"referenceType"`
	ReactionName  string `json:"reactionName"`
}

// UserUpdate upserts a user profile.
type UserUpdate struct {
	UserID          string         `json:"userId"`
	DisplayName     string         `json:"displayName"`
	Roles           []string       `json:"roles"`
	Metadata        map[string]any `json:"metadata"`
	AvatarCustomURL string         `json:"avatarCustomUrl,omitempty"`
	AvatarFileID    string         `json:"avatarFileId,omitempty"`
}

// DeviceInfo describes the client registering a session.
type DeviceInfo struct {
	Kind       string `json:"kind"`
	Model      string `json:"model"`
	SDKVersion string `json:"sdkVersion"`
}

// SessionRequest registers a session for a user.
type SessionRequest struct {
	UserID      string     `json:"userId"`
	DeviceID    string     `json:"deviceId"`
	DeviceInfo  DeviceInfo `json:"deviceInfo"`
	DisplayName string     `json:"displayName"`
}

// CommunityQuery filters communities by tags.
type CommunityQuery struct {
	Tags []string
}

// PostQuery filters posts within a target by tags.
type PostQuery struct {
	TargetType string
	TargetID   string
	Tags       []string
}

// FollowStatus reports the result of a follow request.
type FollowStatus string

// Follow statuses.
const (
	FollowStatusCreated         FollowStatus = "created"
	FollowStatusAlreadyAccepted FollowStatus = "already_accepted"
)
