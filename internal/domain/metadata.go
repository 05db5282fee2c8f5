package domain

// EnrichedMetadata holds off-chain descriptive metadata resolved for a pair.
// Absent upstream data yields empty fields, never placeholders.
type EnrichedMetadata struct {
	Description string
	ImageURL    string
	Verified    bool
	SocialLinks []SocialLink // deduplicated by URL
	Tags        []string     // at most 5, deduplicated
	FetchedAt   int64        // Unix timestamp in milliseconds
}

// Clone returns a deep copy.
func (e *EnrichedMetadata) Clone() *EnrichedMetadata {
	c := *e
	c.SocialLinks = append([]SocialLink(nil), e.SocialLinks...)
	c.Tags = append([]string(nil), e.Tags...)
	return &c
}
