package domain

import "time"

// Subject is the caller identity asserted by the identity provider.
// The zero Subject is an unauthenticated caller.
type Subject struct {
	ID string `json:"id"`
}

// Authenticated reports whether the subject carries an identity.
func (s Subject) Authenticated() bool { return s.ID != "" }

// Is reports whether the subject is the authenticated identity id.
// Always false for unauthenticated subjects.
func (s Subject) Is(id string) bool { return s.ID != "" && s.ID == id }

// Profile is a user profile. Its ID equals the identity-provider id.
// The counter fields are denormalized caches maintained by the store,
// never sources of truth.
type Profile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Bio            string    `json:"bio,omitempty"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	Website        string    `json:"website,omitempty"`
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
	PostsCount     int64     `json:"postsCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Post struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	Caption       string    `json:"caption"`
	MediaURL      string    `json:"mediaUrl"`
	IsReel        bool      `json:"isReel"`
	LikesCount    int64     `json:"likesCount"`
	CommentsCount int64     `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Story is time-bounded media. Rows past ExpiresAt stay on disk but are
// invisible to every read path.
type Story struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	MediaURL  string    `json:"mediaUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the story is no longer visible at now.
func (s Story) Expired(now time.Time) bool { return !s.ExpiresAt.After(now) }

// Like is an engagement edge; (UserID, PostID) is unique.
type Like struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Follow is a directed edge; (FollowerID, FollowingID) is unique.
type Follow struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"followerId"`
	FollowingID string    `json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Save is a private bookmark edge; (UserID, PostID) is unique and the
// row is visible only to its owner.
type Save struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is visible only to its two participants.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}
