package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"snapfeed/internal/util"
	"snapfeed/pkg/domain"
	"snapfeed/pkg/events"
	"snapfeed/pkg/policy"
	"snapfeed/pkg/storage"
	"snapfeed/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	Store          store.Store
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	Media          *storage.AuthorizedStore
	Events         *events.Publisher
}

// App is the core application service. Every operation authorizes the
// caller against the policy table before touching the store; edge
// mutations and their counters commit atomically inside the store.
type App struct {
	store         store.Store
	media         *storage.AuthorizedStore
	events        *events.Publisher
	presignExpiry time.Duration
}

// New constructs the application with database-backed entity storage and
// MinIO-backed media storage.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	media := cfg.Media
	if media == nil && cfg.MinioEndpoint != "" {
		objStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init minio store: %w", err)
		}
		media = storage.NewAuthorizedStore(objStore)
	}
	return &App{
		store:         dataStore,
		media:         media,
		events:        cfg.Events,
		presignExpiry: 15 * time.Minute,
	}, nil
}

func authorize(sub domain.Subject, op policy.Op, row any) error {
	if !policy.Allowed(sub, op, row) {
		return ErrDenied
	}
	return nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	}
	return err
}

// CreateProfile registers the caller's profile at first authentication.
// The proposed row id must equal the caller identity.
func (a *App) CreateProfile(sub domain.Subject, id, username, bio, avatarURL, website string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Profile{}, ErrUsernameRequired
	}
	now := time.Now().UTC()
	profile := domain.Profile{
		ID:        id,
		Username:  username,
		Bio:       bio,
		AvatarURL: avatarURL,
		Website:   website,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := authorize(sub, policy.OpCreate, profile); err != nil {
		return domain.Profile{}, err
	}
	if err := a.store.CreateProfile(profile); err != nil {
		return domain.Profile{}, mapStoreErr(err)
	}
	return profile, nil
}

// GetProfile returns a profile; readable by anyone.
func (a *App) GetProfile(sub domain.Subject, id string) (domain.Profile, error) {
	profile, ok, err := a.store.GetProfile(id)
	if err != nil {
		return domain.Profile{}, err
	}
	if !ok {
		return domain.Profile{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpRead, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username  *string
	Bio       *string
	AvatarURL *string
	Website   *string
}

// UpdateProfile applies upd to the caller's own profile.
func (a *App) UpdateProfile(sub domain.Subject, id string, upd ProfileUpdate) (domain.Profile, error) {
	profile, ok, err := a.store.GetProfile(id)
	if err != nil {
		return domain.Profile{}, err
	}
	if !ok {
		return domain.Profile{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpUpdate, profile); err != nil {
		return domain.Profile{}, err
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return domain.Profile{}, ErrUsernameRequired
		}
		profile.Username = username
	}
	if upd.Bio != nil {
		profile.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		profile.AvatarURL = *upd.AvatarURL
	}
	if upd.Website != nil {
		profile.Website = *upd.Website
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdateProfile(profile); err != nil {
		return domain.Profile{}, mapStoreErr(err)
	}
	return profile, nil
}

// CreatePost creates a post owned by ownerID; the policy table requires
// the proposed owner to be the caller.
func (a *App) CreatePost(sub domain.Subject, ownerID, caption, mediaURL string, isReel bool) (domain.Post, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return domain.Post{}, ErrMediaURLRequired
	}
	now := time.Now().UTC()
	post := domain.Post{
		ID:        util.NewID(),
		OwnerID:   ownerID,
		Caption:   caption,
		MediaURL:  mediaURL,
		IsReel:    isReel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := authorize(sub, policy.OpCreate, post); err != nil {
		return domain.Post{}, err
	}
	if err := a.store.CreatePost(post); err != nil {
		return domain.Post{}, mapStoreErr(err)
	}
	a.publishPostCreated(post)
	return post, nil
}

// GetPost returns a post; readable by anyone.
func (a *App) GetPost(sub domain.Subject, id string) (domain.Post, error) {
	post, ok, err := a.store.GetPost(id)
	if err != nil {
		return domain.Post{}, err
	}
	if !ok {
		return domain.Post{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpRead, post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// ListPostsByOwner returns an owner's posts, newest first.
func (a *App) ListPostsByOwner(sub domain.Subject, ownerID string) ([]domain.Post, error) {
	_ = sub // posts are public
	return a.store.ListPostsByOwner(ownerID)
}

// ListReels returns recent reels.
func (a *App) ListReels(sub domain.Subject, limit int) ([]domain.Post, error) {
	_ = sub
	return a.store.ListReels(limit)
}

// UpdatePost rewrites a post's caption.
func (a *App) UpdatePost(sub domain.Subject, id, caption string) (domain.Post, error) {
	post, ok, err := a.store.GetPost(id)
	if err != nil {
		return domain.Post{}, err
	}
	if !ok {
		return domain.Post{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpUpdate, post); err != nil {
		return domain.Post{}, err
	}
	post.Caption = caption
	post.UpdatedAt = time.Now().UTC()
	if err := a.store.UpdatePostCaption(id, caption, post.UpdatedAt); err != nil {
		return domain.Post{}, mapStoreErr(err)
	}
	return post, nil
}

// DeletePost removes a post; its likes, comments, and saves go with it.
func (a *App) DeletePost(sub domain.Subject, id string) error {
	post, ok, err := a.store.GetPost(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := authorize(sub, policy.OpDelete, post); err != nil {
		return err
	}
	return mapStoreErr(a.store.DeletePost(id))
}

// CreateStory creates a time-bounded story for ownerID.
func (a *App) CreateStory(sub domain.Subject, ownerID, mediaURL string, expiresAt time.Time) (domain.Story, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return domain.Story{}, ErrMediaURLRequired
	}
	story := domain.Story{
		ID:        util.NewID(),
		OwnerID:   ownerID,
		MediaURL:  mediaURL,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := authorize(sub, policy.OpCreate, story); err != nil {
		return domain.Story{}, err
	}
	if err := a.store.CreateStory(story); err != nil {
		return domain.Story{}, mapStoreErr(err)
	}
	return story, nil
}

// GetStory returns a story. Expired rows are invisible to reads even
// though they stay on disk.
func (a *App) GetStory(sub domain.Subject, id string) (domain.Story, error) {
	story, ok, err := a.store.GetStory(id)
	if err != nil {
		return domain.Story{}, err
	}
	if !ok || story.Expired(time.Now().UTC()) {
		return domain.Story{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpRead, story); err != nil {
		return domain.Story{}, err
	}
	return story, nil
}

// ListStories returns an owner's active stories.
func (a *App) ListStories(sub domain.Subject, ownerID string) ([]domain.Story, error) {
	_ = sub // stories are public; expiry filtering happens in the store
	return a.store.ListActiveStoriesByOwner(ownerID, time.Now().UTC())
}

// DeleteStory removes a story. The owner may delete an expired story even
// though nobody can read it anymore.
func (a *App) DeleteStory(sub domain.Subject, id string) error {
	story, ok, err := a.store.GetStory(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := authorize(sub, policy.OpDelete, story); err != nil {
		return err
	}
	return mapStoreErr(a.store.DeleteStory(id))
}

// CreateLike adds a like edge; the parent post's likes_count moves in the
// same atomic unit inside the store.
func (a *App) CreateLike(sub domain.Subject, userID, postID string) (domain.Like, error) {
	like := domain.Like{
		ID:        util.NewID(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: time.Now().UTC(),
	}
	if err := authorize(sub, policy.OpCreate, like); err != nil {
		return domain.Like{}, err
	}
	if err := a.store.CreateLike(like); err != nil {
		return domain.Like{}, mapStoreErr(err)
	}
	a.publishLikeCreated(like)
	return like, nil
}

// DeleteLike removes a like edge and releases the counter.
func (a *App) DeleteLike(sub domain.Subject, id string) error {
	like, ok, err := a.store.GetLike(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := authorize(sub, policy.OpDelete, like); err != nil {
		return err
	}
	if err := a.store.DeleteLike(id); err != nil {
		return mapStoreErr(err)
	}
	a.publishLikeDeleted(like)
	return nil
}

// CreateComment adds a comment; comments_count moves atomically with it.
func (a *App) CreateComment(sub domain.Subject, userID, postID, content string) (domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Comment{}, ErrContentRequired
	}
	comment := domain.Comment{
		ID:        util.NewID(),
		UserID:    userID,
		PostID:    postID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := authorize(sub, policy.OpCreate, comment); err != nil {
		return domain.Comment{}, err
	}
	if err := a.store.CreateComment(comment); err != nil {
		return domain.Comment{}, mapStoreErr(err)
	}
	a.publishCommentCreated(comment)
	return comment, nil
}

// ListComments returns a post's comments in chronological order.
func (a *App) ListComments(sub domain.Subject, postID string) ([]domain.Comment, error) {
	_ = sub // comments are public
	return a.store.ListCommentsByPost(postID)
}

// UpdateComment rewrites a comment's body.
func (a *App) UpdateComment(sub domain.Subject, id, content string) (domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Comment{}, ErrContentRequired
	}
	comment, ok, err := a.store.GetComment(id)
	if err != nil {
		return domain.Comment{}, err
	}
	if !ok {
		return domain.Comment{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpUpdate, comment); err != nil {
		return domain.Comment{}, err
	}
	comment.Content = content
	if err := a.store.UpdateCommentContent(id, content); err != nil {
		return domain.Comment{}, mapStoreErr(err)
	}
	return comment, nil
}

// DeleteComment removes a comment and releases the counter.
func (a *App) DeleteComment(sub domain.Subject, id string) error {
	comment, ok, err := a.store.GetComment(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := authorize(sub, policy.OpDelete, comment); err != nil {
		return err
	}
	return mapStoreErr(a.store.DeleteComment(id))
}

// CreateFollow adds a follow edge; both profile counters move atomically
// with it.
func (a *App) CreateFollow(sub domain.Subject, followerID, followingID string) (domain.Follow, error) {
	follow := domain.Follow{
		ID:          util.NewID(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := authorize(sub, policy.OpCreate, follow); err != nil {
		return domain.Follow{}, err
	}
	if err := a.store.CreateFollow(follow); err != nil {
		return domain.Follow{}, mapStoreErr(err)
	}
	a.publishFollowCreated(follow)
	return follow, nil
}

// ListFollowers returns the follow edges pointing at profileID.
func (a *App) ListFollowers(sub domain.Subject, profileID string) ([]domain.Follow, error) {
	_ = sub // follow edges are public
	return a.store.ListFollowers(profileID)
}

// ListFollowing returns the follow edges originating from profileID.
func (a *App) ListFollowing(sub domain.Subject, profileID string) ([]domain.Follow, error) {
	_ = sub
	return a.store.ListFollowing(profileID)
}

// DeleteFollow removes a follow edge; only the follower may undo it.
func (a *App) DeleteFollow(sub domain.Subject, id string) error {
	follow, ok, err := a.store.GetFollow(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := authorize(sub, policy.OpDelete, follow); err != nil {
		return err
	}
	return mapStoreErr(a.store.DeleteFollow(id))
}

// CreateSave bookmarks a post privately.
func (a *App) CreateSave(sub domain.Subject, userID, postID string) (domain.Save, error) {
	save := domain.Save{
		ID:        util.NewID(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: time.Now().UTC(),
	}
	if err := authorize(sub, policy.OpCreate, save); err != nil {
		return domain.Save{}, err
	}
	if err := a.store.CreateSave(save); err != nil {
		return domain.Save{}, mapStoreErr(err)
	}
	return save, nil
}

// ListSaves returns a user's saves; only the owner may see them.
func (a *App) ListSaves(sub domain.Subject, userID string) ([]domain.Save, error) {
	// The read policy for saves is owner-only, checked before the query
	// so a denied caller cannot observe row counts.
	if !sub.Is(userID) {
		return nil, ErrDenied
	}
	return a.store.ListSavesByUser(userID)
}

// DeleteSave removes a bookmark.
func (a *App) DeleteSave(sub domain.Subject, id string) error {
	save, ok, err := a.store.GetSave(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := authorize(sub, policy.OpDelete, save); err != nil {
		return err
	}
	return mapStoreErr(a.store.DeleteSave(id))
}

// CreateMessage sends a direct message from senderID to receiverID.
func (a *App) CreateMessage(sub domain.Subject, senderID, receiverID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, ErrContentRequired
	}
	msg := domain.Message{
		ID:         util.NewID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := authorize(sub, policy.OpCreate, msg); err != nil {
		return domain.Message{}, err
	}
	if err := a.store.CreateMessage(msg); err != nil {
		return domain.Message{}, mapStoreErr(err)
	}
	return msg, nil
}

// GetMessage returns a message; only its two participants may read it.
func (a *App) GetMessage(sub domain.Subject, id string) (domain.Message, error) {
	msg, ok, err := a.store.GetMessage(id)
	if err != nil {
		return domain.Message{}, err
	}
	if !ok {
		return domain.Message{}, ErrNotFound
	}
	if err := authorize(sub, policy.OpRead, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// ListMessages returns the caller's conversation with peerID in
// chronological order.
func (a *App) ListMessages(sub domain.Subject, peerID string, limit int) ([]domain.Message, error) {
	if !sub.Authenticated() {
		return nil, ErrDenied
	}
	// The query is scoped to conversations the caller participates in,
	// which is exactly the message read policy.
	return a.store.ListMessagesBetween(sub.ID, peerID, limit)
}

// UploadMedia stores a media object under the caller's namespace folder.
func (a *App) UploadMedia(ctx context.Context, sub domain.Subject, namespace, key string, r io.Reader, size int64, contentType string) error {
	if a.media == nil {
		return fmt.Errorf("media storage not configured")
	}
	if err := a.media.Put(ctx, sub, namespace, key, r, size, contentType); err != nil {
		if errors.Is(err, storage.ErrMediaDenied) {
			return ErrDenied
		}
		return fmt.Errorf("save media: %w", err)
	}
	return nil
}

// MediaURL returns a short-lived download URL for a public media object.
func (a *App) MediaURL(ctx context.Context, sub domain.Subject, namespace, key string) (string, error) {
	if a.media == nil {
		return "", fmt.Errorf("media storage not configured")
	}
	url, err := a.media.PresignGet(ctx, sub, namespace, key, a.presignExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrMediaDenied) {
			return "", ErrDenied
		}
		return "", fmt.Errorf("presign media: %w", err)
	}
	return url, nil
}

// DeleteMedia removes a media object from the caller's namespace folder.
func (a *App) DeleteMedia(ctx context.Context, sub domain.Subject, namespace, key string) error {
	if a.media == nil {
		return fmt.Errorf("media storage not configured")
	}
	if err := a.media.Delete(ctx, sub, namespace, key); err != nil {
		if errors.Is(err, storage.ErrMediaDenied) {
			return ErrDenied
		}
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

func (a *App) publishPostCreated(post domain.Post) {
	if a.events == nil {
		return
	}
	err := a.events.PublishPostCreated(events.PostCreatedEvent{
		PostID:    post.ID,
		OwnerID:   post.OwnerID,
		IsReel:    post.IsReel,
		CreatedAt: post.CreatedAt,
	})
	if err != nil {
		slog.Warn("publish post.created failed", "post_id", post.ID, "error", err)
	}
}

func (a *App) publishLikeCreated(like domain.Like) {
	if a.events == nil {
		return
	}
	if err := a.events.PublishLikeCreated(likeEvent(like)); err != nil {
		slog.Warn("publish like.created failed", "like_id", like.ID, "error", err)
	}
}

func (a *App) publishLikeDeleted(like domain.Like) {
	if a.events == nil {
		return
	}
	if err := a.events.PublishLikeDeleted(likeEvent(like)); err != nil {
		slog.Warn("publish like.deleted failed", "like_id", like.ID, "error", err)
	}
}

func likeEvent(like domain.Like) events.LikeEvent {
	return events.LikeEvent{
		LikeID:    like.ID,
		PostID:    like.PostID,
		UserID:    like.UserID,
		CreatedAt: like.CreatedAt,
	}
}

func (a *App) publishCommentCreated(comment domain.Comment) {
	if a.events == nil {
		return
	}
	err := a.events.PublishCommentCreated(events.CommentCreatedEvent{
		CommentID: comment.ID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	})
	if err != nil {
		slog.Warn("publish comment.created failed", "comment_id", comment.ID, "error", err)
	}
}

func (a *App) publishFollowCreated(follow domain.Follow) {
	if a.events == nil {
		return
	}
	err := a.events.PublishFollowCreated(events.FollowCreatedEvent{
		FollowID:    follow.ID,
		FollowerID:  follow.FollowerID,
		FollowingID: follow.FollowingID,
		CreatedAt:   follow.CreatedAt,
	})
	if err != nil {
		slog.Warn("publish follow.created failed", "follow_id", follow.ID, "error", err)
	}
}
