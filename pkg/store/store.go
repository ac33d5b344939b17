package store

import (
	"errors"
	"time"

	"snapfeed/pkg/domain"
)

var (
	// ErrDuplicate is returned when a uniqueness constraint is violated
	// (duplicate like/save/follow edge, duplicate username or id).
	ErrDuplicate = errors.New("store: duplicate row")

	// ErrNotFound is returned when a target row or a referenced parent
	// row does not exist.
	ErrNotFound = errors.New("store: row not found")
)

// Store defines persistence for the feed entities. Every edge mutation
// and its counter update run as one atomic unit of work; a failure of
// either rolls back both.
type Store interface {
	// profiles
	CreateProfile(domain.Profile) error
	GetProfile(id string) (domain.Profile, bool, error)
	GetProfileByUsername(username string) (domain.Profile, bool, error)
	UpdateProfile(domain.Profile) error
	// DeleteProfile cascades to every dependent row and repairs counters
	// on surviving rows. The core never calls it; it exists for the
	// identity provider's account-deletion flow.
	DeleteProfile(id string) error

	// posts
	CreatePost(domain.Post) error
	GetPost(id string) (domain.Post, bool, error)
	ListPostsByOwner(ownerID string) ([]domain.Post, error)
	ListReels(limit int) ([]domain.Post, error)
	UpdatePostCaption(id, caption string, at time.Time) error
	DeletePost(id string) error

	// stories
	CreateStory(domain.Story) error
	GetStory(id string) (domain.Story, bool, error)
	ListActiveStoriesByOwner(ownerID string, now time.Time) ([]domain.Story, error)
	DeleteStory(id string) error

	// likes
	CreateLike(domain.Like) error
	GetLike(id string) (domain.Like, bool, error)
	DeleteLike(id string) error

	// comments
	CreateComment(domain.Comment) error
	GetComment(id string) (domain.Comment, bool, error)
	ListCommentsByPost(postID string) ([]domain.Comment, error)
	UpdateCommentContent(id, content string) error
	DeleteComment(id string) error

	// follows
	CreateFollow(domain.Follow) error
	GetFollow(id string) (domain.Follow, bool, error)
	ListFollowers(profileID string) ([]domain.Follow, error)
	ListFollowing(profileID string) ([]domain.Follow, error)
	DeleteFollow(id string) error

	// saves
	CreateSave(domain.Save) error
	GetSave(id string) (domain.Save, bool, error)
	ListSavesByUser(userID string) ([]domain.Save, error)
	DeleteSave(id string) error

	// messages
	CreateMessage(domain.Message) error
	GetMessage(id string) (domain.Message, bool, error)
	ListMessagesBetween(userA, userB string, limit int) ([]domain.Message, error)

	// VerifyCounters recomputes live edge counts and reports any drift
	// from the denormalized columns. Drift indicates a bug, never a
	// retryable condition.
	VerifyCounters() error
}
