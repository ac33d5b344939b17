package events

import "time"

// NATS subjects for engagement events. External collaborators such as the
// notification pipeline subscribe to these; the core only publishes.
const (
	PostCreated    = "post.created"
	LikeCreated    = "like.created"
	LikeDeleted    = "like.deleted"
	CommentCreated = "comment.created"
	FollowCreated  = "follow.created"
)

// Event payloads
type PostCreatedEvent struct {
	PostID    string    `json:"post_id"`
	OwnerID   string    `json:"owner_id"`
	IsReel    bool      `json:"is_reel"`
	CreatedAt time.Time `json:"created_at"`
}

type LikeEvent struct {
	LikeID    string    `json:"like_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentCreatedEvent struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type FollowCreatedEvent struct {
	FollowID    string    `json:"follow_id"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}
