package store

import "time"

// GORM models used for persistence. Counter columns default to zero and
// are only ever touched by the transactional edge operations.
type ProfileModel struct {
	ID             string `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;not null"`
	Bio            string
	AvatarURL      string
	Website        string
	FollowersCount int64     `gorm:"not null;default:0"`
	FollowingCount int64     `gorm:"not null;default:0"`
	PostsCount     int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time
}

type PostModel struct {
	ID            string `gorm:"primaryKey"`
	OwnerID       string `gorm:"not null;index"`
	Caption       string
	MediaURL      string    `gorm:"not null"`
	IsReel        bool      `gorm:"not null;default:false"`
	LikesCount    int64     `gorm:"not null;default:0"`
	CommentsCount int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type StoryModel struct {
	ID        string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"not null;index"`
	MediaURL  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type LikeModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_likes_user_post"`
	PostID    string    `gorm:"not null;uniqueIndex:idx_likes_user_post;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type CommentModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	PostID    string    `gorm:"not null;index"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type FollowModel struct {
	ID          string    `gorm:"primaryKey"`
	FollowerID  string    `gorm:"not null;uniqueIndex:idx_follows_pair"`
	FollowingID string    `gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	CreatedAt   time.Time `gorm:"not null"`
}

type SaveModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_saves_user_post"`
	PostID    string    `gorm:"not null;uniqueIndex:idx_saves_user_post;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID         string    `gorm:"primaryKey"`
	SenderID   string    `gorm:"not null;index"`
	ReceiverID string    `gorm:"not null;index"`
	Content    string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}
