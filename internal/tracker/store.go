package tracker

import (
	"context"
	"errors"
	"math"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Post is the canonical, platform-agnostic representation of one analytics
// entry. Metric fields are immutable after insertion; only Theme and Campaign
// may be updated later.
type Post struct {
	ID             int64   `json:"id"`
	Platform       string  `json:"platform"`
	Page           string  `json:"page"`
	PostID         string  `json:"postId,omitempty"`
	Date           string  `json:"date"`
	Type           string  `json:"type"`
	Text           string  `json:"text"`
	Reach          int     `json:"reach"`
	Impressions    int     `json:"impressions"`
	Likes          int     `json:"likes"`
	Comments       int     `json:"comments"`
	Shares         int     `json:"shares"`
	Clicks         int     `json:"clicks"`
	Engagement     int     `json:"engagement"`
	EngagementRate float64 `json:"engagementRate"`
	Theme          string  `json:"theme"`
	Campaign       string  `json:"campaign"`
	SourceFile     string  `json:"sourceFile,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

// UploadEntry is one row of the append-only ingestion audit log. It is purely
// observational and never consulted for deduplication.
type UploadEntry struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	Platform   string `json:"platform"`
	Page       string `json:"page"`
	PostCount  int    `json:"postCount"`
	UploadedAt string `json:"uploadedAt"`
}

// MonthlyStat aggregates stored posts per (platform, page, calendar month).
type MonthlyStat struct {
	Platform         string `json:"platform"`
	Page             string `json:"page"`
	Month            string `json:"month"`
	TotalPosts       int    `json:"totalPosts"`
	TotalLikes       int    `json:"totalLikes"`
	TotalComments    int    `json:"totalComments"`
	TotalShares      int    `json:"totalShares"`
	TotalEngagement  int    `json:"totalEngagement"`
	TotalReach       int    `json:"totalReach"`
	TotalImpressions int    `json:"totalImpressions"`
}

// FollowerSnapshot records the follower count of one page on one platform for
// a given calendar month. Saving the same (platform, page, month) again
// overwrites the previous value.
type FollowerSnapshot struct {
	Platform   string `json:"platform"`
	Page       string `json:"page"`
	Month      string `json:"month"`
	Followers  int    `json:"followers"`
	RecordedAt string `json:"recordedAt"`
}

// PostFilter narrows ListPosts results. Empty fields match everything.
type PostFilter struct {
	Platform string
	Page     string
}

// Store persists canonical posts and the upload ledger. Uniqueness of the
// dedup key (platform, page, date, text) must be enforced atomically by the
// storage engine, not by read-then-write application code.
type Store interface {
	InsertPosts(ctx context.Context, posts []Post, platform, page string) (int, error)
	RelabelPost(ctx context.Context, id int64, theme, campaign string) error
	ListPosts(ctx context.Context, filter PostFilter) ([]Post, error)
	MonthlyStats(ctx context.Context, platform string) ([]MonthlyStat, error)

	LogUpload(ctx context.Context, entry UploadEntry) error
	ListUploads(ctx context.Context) ([]UploadEntry, error)

	SaveFollowerSnapshot(ctx context.Context, snapshot FollowerSnapshot) error
	FollowerCount(ctx context.Context, platform, page, month string) (int, bool, error)
	PreviousFollowerCount(ctx context.Context, platform, page, before string) (int, bool, error)

	Close() error
}

// DerivedMetrics computes the insertion-time derived fields: engagement is
// the sum of the interaction counts, engagement rate is engagement relative
// to reach as a percentage rounded to two decimals (0.0 when reach is 0).
func DerivedMetrics(likes, comments, shares, reach int) (int, float64) {
	engagement := likes + comments + shares
	if reach <= 0 {
		return engagement, 0.0
	}
	rate := float64(engagement) / float64(reach) * 100
	return engagement, math.Round(rate*100) / 100
}
