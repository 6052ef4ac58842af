package migration

import "slices"

const (
	provenanceTagPrefixConstant   = "gsId="
	provenanceMetadataKeyConstant = "gsId"
	languageTagPrefixConstant     = "language="
	languageMetadataKeyConstant   = "language"
)

// ProvenanceTag returns the tag recording which source entity a destination entity came from.
func ProvenanceTag(sourceID string) string {
	return provenanceTagPrefixConstant + sourceID
}

// HasProvenanceTag reports whether tags contain the exact provenance tag of sourceID.
// Destination tag search may match loosely, so callers filter results with this.
func HasProvenanceTag(tags []string, sourceID string) bool {
	return slices.Contains(tags, ProvenanceTag(sourceID))
}
