package post

import (
	"fmt"
	"time"
)

// ReferenceKind classifies an explicit link from one post to another.
type ReferenceKind string

const (
	ReferenceReply  ReferenceKind = "reply"
	ReferenceRepost ReferenceKind = "repost"
	ReferenceQuote  ReferenceKind = "quote"
)

// Reference is an explicit link to another post (reply-to, repost-of, quote-of)
type Reference struct {
	Kind         ReferenceKind
	TargetPostID string
}

// Location represents a geographic point attached to a post
type Location struct {
	Latitude  float64
	Longitude float64
}

// Post is an immutable record of a single social media post as returned
// by a platform connector. It is created on fetch and never mutated.
type Post struct {
	ID           string
	Platform     string
	AuthorID     string
	AuthorHandle string
	Content      string
	Timestamp    time.Time
	URL          string
	Engagement   map[string]int
	References   []Reference
	Hashtags     []string
	Mentions     []string
	Location     *Location
}

// EngagementSum returns the total engagement across all counters
func (p Post) EngagementSum() int {
	total := 0
	for _, v := range p.Engagement {
		total += v
	}
	return total
}

// IsRepost reports whether this post carries a repost or quote reference
func (p Post) IsRepost() bool {
	_, ok := p.RepostedID()
	return ok
}

// RepostedID returns the id of the post this one reposts or quotes, if any
func (p Post) RepostedID() (string, bool) {
	for _, ref := range p.References {
		if ref.Kind == ReferenceRepost || ref.Kind == ReferenceQuote {
			return ref.TargetPostID, true
		}
	}
	return "", false
}

// AuthorKey identifies the author across platforms
func (p Post) AuthorKey() string {
	return fmt.Sprintf("%s:%s", p.Platform, p.AuthorID)
}
