package migration

import (
	"strings"
	"time"
	"unicode"

	"github.com/temirov/socialmigrate/internal/getsocial"
)

const destinationTimestampLayoutConstant = "2006-01-02T15:04:05.000Z"

// formatCreatedAt renders source epoch seconds as the destination's UTC timestamp.
func formatCreatedAt(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).UTC().Format(destinationTimestampLayoutConstant)
}

// activityText returns the first non-empty text across the activity's content entries.
func activityText(activity getsocial.Activity) string {
	for _, content := range activity.Content {
		if len(content.Text) > 0 {
			return content.Text
		}
	}
	return ""
}

// propertyMetadata copies properties whose key starts with an ASCII letter or digit.
func propertyMetadata(properties map[string]any) map[string]any {
	metadata := make(map[string]any, len(properties))
	for propertyKey, propertyValue := range properties {
		if copyablePropertyKey(propertyKey) {
			metadata[propertyKey] = propertyValue
		}
	}
	return metadata
}

func copyablePropertyKey(propertyKey string) bool {
	if len(propertyKey) == 0 {
		return false
	}
	leading := rune(propertyKey[0])
	return leading < unicode.MaxASCII && (unicode.IsLetter(leading) || unicode.IsDigit(leading))
}

// postTags assembles the provenance tag, non-empty labels, and the language tag.
func postTags(post getsocial.Activity) []string {
	tags := []string{ProvenanceTag(post.ID)}
	for _, label := range post.Labels {
		if len(strings.TrimSpace(label)) > 0 {
			tags = append(tags, label)
		}
	}
	if language := post.PrimaryContent().Language; len(language) > 0 {
		tags = append(tags, languageTagPrefixConstant+language)
	}
	return tags
}

// activityMetadata builds destination metadata from properties and content language.
func activityMetadata(activity getsocial.Activity) map[string]any {
	metadata := propertyMetadata(activity.Properties)
	if language := activity.PrimaryContent().Language; len(language) > 0 {
		metadata[languageMetadataKeyConstant] = language
	}
	return metadata
}
