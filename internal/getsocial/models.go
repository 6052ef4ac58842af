package getsocial

import "strings"

const (
	englishLanguageKeyConstant = "en"
	postContentTypeConstant    = "post"
	commentContentTypeConstant = "comment"
)

// LocalizedText maps language codes to text.
type LocalizedText map[string]string

// English returns the English variant, or an empty string.
func (text LocalizedText) English() string {
	return text[englishLanguageKeyConstant]
}

// User is a source community member.
type User struct {
	ID                string            `json:"id"`
	AuthIdentities    map[string]string `json:"auth_identities"`
	DisplayName       string            `json:"display_name"`
	AvatarURL         string            `json:"avatar_url"`
	PrivateProperties map[string]any    `json:"private_properties"`
	PublicProperties  map[string]any    `json:"public_properties"`
	IsVerified        bool              `json:"is_verified"`
	CanModerate       bool              `json:"can_moderate"`
}

// Membership describes a user's standing in a group.
type Membership struct {
	CreatedAt int64  `json:"created_at"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

// GroupMember pairs a user with their membership record.
type GroupMember struct {
	Membership Membership `json:"membership"`
	User       User       `json:"user"`
}

// GroupPermissions lists who may post and interact in a group.
type GroupPermissions struct {
	Interact string `json:"interact"`
	Post     string `json:"post"`
}

// Group is a source community group.
type Group struct {
	ID             string            `json:"id"`
	Title          LocalizedText     `json:"title"`
	Description    LocalizedText     `json:"description"`
	AvatarURL      string            `json:"avatar_url"`
	FollowersCount int               `json:"followers_count"`
	IsDiscoverable bool              `json:"is_discoverable"`
	IsPrivate      bool              `json:"is_private"`
	Labels         []string          `json:"labels"`
	MembersCount   int               `json:"members_count"`
	Permissions    GroupPermissions  `json:"permissions"`
	Properties     map[string]string `json:"properties"`
}

// Author identifies who published an activity or reaction. User is nil for app-authored content.
type Author struct {
	IsApp      bool  `json:"is_app"`
	IsVerified bool  `json:"is_verified"`
	User       *User `json:"user"`
}

// AddressableUser returns the authoring user when it carries an identifier.
func (author Author) AddressableUser() (User, bool) {
	if author.User == nil || len(strings.TrimSpace(author.User.ID)) == 0 {
		return User{}, false
	}
	return *author.User, true
}

// Attachment references one media item. A set Video takes precedence over Image.
type Attachment struct {
	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`
}

// IsVideo reports whether the attachment carries a video.
func (attachment Attachment) IsVideo() bool {
	return len(strings.TrimSpace(attachment.Video)) > 0
}

// IsImage reports whether the attachment carries only an image.
func (attachment Attachment) IsImage() bool {
	return !attachment.IsVideo() && len(strings.TrimSpace(attachment.Image)) > 0
}

// ButtonAction is the action attached to a content button.
type ButtonAction struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Button is an optional call to action rendered below content.
type Button struct {
	Title  string       `json:"title"`
	Action ButtonAction `json:"action"`
}

// Content is one localized body of an activity.
type Content struct {
	Attachments []Attachment `json:"attachments"`
	Button      *Button      `json:"button,omitempty"`
	Language    string       `json:"language"`
	Text        string       `json:"text"`
}

// ActivityKind discriminates posts from comments.
type ActivityKind string

// Activity kinds reported by the source.
const (
	ActivityKindPost    ActivityKind = ActivityKind(postContentTypeConstant)
	ActivityKindComment ActivityKind = ActivityKind(commentContentTypeConstant)
)

// Activity is a post or a comment; Kind tells which.
type Activity struct {
	ID              string         `json:"id"`
	Kind            ActivityKind   `json:"content_type"`
	Author          Author         `json:"author"`
	CommentsCount   int            `json:"comments_count"`
	Content         []Content      `json:"content"`
	CreatedAt       int64          `json:"created_at"`
	Properties      map[string]any `json:"properties"`
	ReactionsCount  map[string]int `json:"reactions_count"`
	Status          string         `json:"status"`
	StatusUpdatedAt int64          `json:"status_updated_at"`
	Labels          []string       `json:"labels"`
}

// PrimaryContent returns the first content entry, which carries the text, language and attachments.
func (activity Activity) PrimaryContent() Content {
	if len(activity.Content) == 0 {
		return Content{}
	}
	return activity.Content[0]
}

// TotalReactions sums the per-reaction counters.
func (activity Activity) TotalReactions() int {
	total := 0
	for _, count := range activity.ReactionsCount {
		total += count
	}
	return total
}

// Reaction lists the reaction names one author left on an activity.
type Reaction struct {
	Author    Author   `json:"author"`
	Reactions []string `json:"reactions"`
}
