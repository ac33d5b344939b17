package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"snapfeed/pkg/domain"
)

const migrateLockID int64 = 84118411

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// foreign keys ensured after auto-migration; every reference cascades on
// parent deletion so no orphaned edge can survive.
var foreignKeys = []struct {
	table, constraint, column, refTable string
}{
	{"post_models", "post_models_owner_id_fkey", "owner_id", "profile_models"},
	{"story_models", "story_models_owner_id_fkey", "owner_id", "profile_models"},
	{"like_models", "like_models_user_id_fkey", "user_id", "profile_models"},
	{"like_models", "like_models_post_id_fkey", "post_id", "post_models"},
	{"comment_models", "comment_models_user_id_fkey", "user_id", "profile_models"},
	{"comment_models", "comment_models_post_id_fkey", "post_id", "post_models"},
	{"follow_models", "follow_models_follower_id_fkey", "follower_id", "profile_models"},
	{"follow_models", "follow_models_following_id_fkey", "following_id", "profile_models"},
	{"save_models", "save_models_user_id_fkey", "user_id", "profile_models"},
	{"save_models", "save_models_post_id_fkey", "post_id", "post_models"},
	{"message_models", "message_models_sender_id_fkey", "sender_id", "profile_models"},
	{"message_models", "message_models_receiver_id_fkey", "receiver_id", "profile_models"},
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&ProfileModel{}, &PostModel{}, &StoryModel{}, &LikeModel{},
			&CommentModel{}, &FollowModel{}, &SaveModel{}, &MessageModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		for _, fk := range foreignKeys {
			stmt := fmt.Sprintf(`
				DO $$
				BEGIN
					IF NOT EXISTS (
						SELECT 1 FROM information_schema.table_constraints
						WHERE table_schema = 'public'
						AND table_name = '%s'
						AND constraint_name = '%s'
					) THEN
						ALTER TABLE %s
						ADD CONSTRAINT %s
						FOREIGN KEY (%s) REFERENCES %s(id) ON DELETE CASCADE;
					END IF;
				END $$;
			`, fk.table, fk.constraint, fk.table, fk.constraint, fk.column, fk.refTable)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("ensure foreign key %s: %w", fk.constraint, err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrNotFound
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	default:
		return err
	}
}

// bumpPostCounter applies a storage-level atomic delta to a post counter
// column. When the post row is already gone (cascade removed it) the
// update matches nothing and the bump is a no-op.
func bumpPostCounter(tx *gorm.DB, postID, column string, delta int) error {
	return tx.Model(&PostModel{}).Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func bumpProfileCounter(tx *gorm.DB, profileID, column string, delta int) error {
	return tx.Model(&ProfileModel{}).Where("id = ?", profileID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// CreateProfile inserts a profile row. The id equals the identity-provider
// id; a second insert for the same identity or username is a duplicate.
func (s *GormStore) CreateProfile(p domain.Profile) error {
	model := profileToModel(p)
	return translateErr(s.db.Create(&model).Error)
}

// GetProfile returns a profile by id.
func (s *GormStore) GetProfile(id string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// GetProfileByUsername looks up a profile by its unique username.
func (s *GormStore) GetProfileByUsername(username string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return profileFromModel(model), true, nil
}

// UpdateProfile rewrites the mutable profile fields. Counter columns are
// deliberately excluded; only edge operations may move them.
func (s *GormStore) UpdateProfile(p domain.Profile) error {
	res := s.db.Model(&ProfileModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"username":   p.Username,
		"bio":        p.Bio,
		"avatar_url": p.AvatarURL,
		"website":    p.Website,
		"updated_at": p.UpdatedAt,
	})
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProfile removes a profile and everything that hangs off it, and
// repairs counters on surviving rows that referenced the deleted identity.
func (s *GormStore) DeleteProfile(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&ProfileModel{}).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}

		// Likes and comments this identity left on other owners' posts
		// must release their counters before the edge rows disappear.
		if err := tx.Exec(`
			UPDATE post_models SET likes_count = likes_count - 1
			WHERE id IN (SELECT post_id FROM like_models WHERE user_id = ?)
			  AND owner_id <> ?
		`, id, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			UPDATE post_models p SET comments_count = comments_count - c.cnt
			FROM (
				SELECT post_id, COUNT(*) AS cnt FROM comment_models
				WHERE user_id = ? GROUP BY post_id
			) c
			WHERE p.id = c.post_id AND p.owner_id <> ?
		`, id, id).Error; err != nil {
			return err
		}
		// Same for follow edges touching surviving profiles.
		if err := tx.Exec(`
			UPDATE profile_models SET followers_count = followers_count - 1
			WHERE id IN (SELECT following_id FROM follow_models WHERE follower_id = ?)
			  AND id <> ?
		`, id, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			UPDATE profile_models SET following_count = following_count - 1
			WHERE id IN (SELECT follower_id FROM follow_models WHERE following_id = ?)
			  AND id <> ?
		`, id, id).Error; err != nil {
			return err
		}

		// Edges on posts owned by this identity, left by other users.
		if err := tx.Exec(`
			DELETE FROM like_models
			WHERE post_id IN (SELECT id FROM post_models WHERE owner_id = ?)
		`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			DELETE FROM comment_models
			WHERE post_id IN (SELECT id FROM post_models WHERE owner_id = ?)
		`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			DELETE FROM save_models
			WHERE post_id IN (SELECT id FROM post_models WHERE owner_id = ?)
		`, id).Error; err != nil {
			return err
		}

		// Rows owned by or addressed to this identity.
		if err := tx.Delete(&LikeModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CommentModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&SaveModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FollowModel{}, "follower_id = ? OR following_id = ?", id, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&MessageModel{}, "sender_id = ? OR receiver_id = ?", id, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&StoryModel{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&PostModel{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&ProfileModel{}, "id = ?", id).Error
	})
}

// CreatePost inserts a post and bumps the owner's posts_count in the same
// transaction.
func (s *GormStore) CreatePost(p domain.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		model := postToModel(p)
		if err := tx.Create(&model).Error; err != nil {
			return translateErr(err)
		}
		return bumpProfileCounter(tx, p.OwnerID, "posts_count", 1)
	})
}

// GetPost returns a post by id.
func (s *GormStore) GetPost(id string) (domain.Post, bool, error) {
	var model PostModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, false, nil
		}
		return domain.Post{}, false, err
	}
	return postFromModel(model), true, nil
}

// ListPostsByOwner returns an owner's posts, newest first.
func (s *GormStore) ListPostsByOwner(ownerID string) ([]domain.Post, error) {
	var models []PostModel
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	posts := make([]domain.Post, 0, len(models))
	for _, m := range models {
		posts = append(posts, postFromModel(m))
	}
	return posts, nil
}

// ListReels returns recent reel posts.
func (s *GormStore) ListReels(limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []PostModel
	if err := s.db.Where("is_reel = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	posts := make([]domain.Post, 0, len(models))
	for _, m := range models {
		posts = append(posts, postFromModel(m))
	}
	return posts, nil
}

// UpdatePostCaption rewrites the caption only.
func (s *GormStore) UpdatePostCaption(id, caption string, at time.Time) error {
	res := s.db.Model(&PostModel{}).Where("id = ?", id).Updates(map[string]any{
		"caption":    caption,
		"updated_at": at,
	})
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post with its likes, comments, and saves, and
// releases the owner's posts_count, all in one transaction.
func (s *GormStore) DeletePost(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model PostModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return translateErr(err)
		}
		if err := tx.Delete(&LikeModel{}, "post_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CommentModel{}, "post_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&SaveModel{}, "post_id = ?", id).Error; err != nil {
			return err
		}
		// A concurrent delete can win between the read and this delete;
		// a zero-row delete must not release the counter.
		res := tx.Delete(&PostModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return bumpProfileCounter(tx, model.OwnerID, "posts_count", -1)
	})
}

// CreateStory inserts a story row.
func (s *GormStore) CreateStory(st domain.Story) error {
	model := storyToModel(st)
	return translateErr(s.db.Create(&model).Error)
}

// GetStory returns a story by id regardless of expiry; visibility of
// expired rows is decided by the caller.
func (s *GormStore) GetStory(id string) (domain.Story, bool, error) {
	var model StoryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Story{}, false, nil
		}
		return domain.Story{}, false, err
	}
	return storyFromModel(model), true, nil
}

// ListActiveStoriesByOwner returns an owner's stories that have not
// expired at now. Expired rows stay on disk but never leave this query.
func (s *GormStore) ListActiveStoriesByOwner(ownerID string, now time.Time) ([]domain.Story, error) {
	var models []StoryModel
	if err := s.db.Where("owner_id = ? AND expires_at > ?", ownerID, now).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	stories := make([]domain.Story, 0, len(models))
	for _, m := range models {
		stories = append(stories, storyFromModel(m))
	}
	return stories, nil
}

// DeleteStory removes a story row.
func (s *GormStore) DeleteStory(id string) error {
	res := s.db.Delete(&StoryModel{}, "id = ?", id)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateLike inserts a like edge and bumps the parent post's likes_count
// in the same transaction. Duplicate (user, post) pairs are rejected by
// the unique index before the counter moves.
func (s *GormStore) CreateLike(l domain.Like) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		model := likeToModel(l)
		if err := tx.Create(&model).Error; err != nil {
			return translateErr(err)
		}
		return bumpPostCounter(tx, l.PostID, "likes_count", 1)
	})
}

// GetLike returns a like edge by id.
func (s *GormStore) GetLike(id string) (domain.Like, bool, error) {
	var model LikeModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Like{}, false, nil
		}
		return domain.Like{}, false, err
	}
	return likeFromModel(model), true, nil
}

// DeleteLike removes a like edge and releases the parent post's
// likes_count in the same transaction.
func (s *GormStore) DeleteLike(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model LikeModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return translateErr(err)
		}
		// A concurrent delete can win between the read and this delete;
		// a zero-row delete must not release the counter.
		res := tx.Delete(&LikeModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return bumpPostCounter(tx, model.PostID, "likes_count", -1)
	})
}

// CreateComment inserts a comment and bumps the parent post's
// comments_count in the same transaction.
func (s *GormStore) CreateComment(c domain.Comment) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		model := commentToModel(c)
		if err := tx.Create(&model).Error; err != nil {
			return translateErr(err)
		}
		return bumpPostCounter(tx, c.PostID, "comments_count", 1)
	})
}

// GetComment returns a comment by id.
func (s *GormStore) GetComment(id string) (domain.Comment, bool, error) {
	var model CommentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Comment{}, false, nil
		}
		return domain.Comment{}, false, err
	}
	return commentFromModel(model), true, nil
}

// ListCommentsByPost returns a post's comments in chronological order.
func (s *GormStore) ListCommentsByPost(postID string) ([]domain.Comment, error) {
	var models []CommentModel
	if err := s.db.Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	comments := make([]domain.Comment, 0, len(models))
	for _, m := range models {
		comments = append(comments, commentFromModel(m))
	}
	return comments, nil
}

// UpdateCommentContent rewrites the comment body.
func (s *GormStore) UpdateCommentContent(id, content string) error {
	res := s.db.Model(&CommentModel{}).Where("id = ?", id).
		UpdateColumn("content", content)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment and releases the parent post's
// comments_count in the same transaction.
func (s *GormStore) DeleteComment(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model CommentModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return translateErr(err)
		}
		// A concurrent delete can win between the read and this delete;
		// a zero-row delete must not release the counter.
		res := tx.Delete(&CommentModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return bumpPostCounter(tx, model.PostID, "comments_count", -1)
	})
}

// CreateFollow inserts a follow edge and bumps both profile counters in
// the same transaction.
func (s *GormStore) CreateFollow(f domain.Follow) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		model := followToModel(f)
		if err := tx.Create(&model).Error; err != nil {
			return translateErr(err)
		}
		if err := bumpProfileCounter(tx, f.FollowingID, "followers_count", 1); err != nil {
			return err
		}
		return bumpProfileCounter(tx, f.FollowerID, "following_count", 1)
	})
}

// GetFollow returns a follow edge by id.
func (s *GormStore) GetFollow(id string) (domain.Follow, bool, error) {
	var model FollowModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Follow{}, false, nil
		}
		return domain.Follow{}, false, err
	}
	return followFromModel(model), true, nil
}

// ListFollowers returns edges pointing at profileID.
func (s *GormStore) ListFollowers(profileID string) ([]domain.Follow, error) {
	return s.listFollows("following_id = ?", profileID)
}

// ListFollowing returns edges originating from profileID.
func (s *GormStore) ListFollowing(profileID string) ([]domain.Follow, error) {
	return s.listFollows("follower_id = ?", profileID)
}

func (s *GormStore) listFollows(cond string, arg any) ([]domain.Follow, error) {
	var models []FollowModel
	if err := s.db.Where(cond, arg).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	follows := make([]domain.Follow, 0, len(models))
	for _, m := range models {
		follows = append(follows, followFromModel(m))
	}
	return follows, nil
}

// DeleteFollow removes a follow edge and releases both profile counters
// in the same transaction.
func (s *GormStore) DeleteFollow(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var model FollowModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return translateErr(err)
		}
		// A concurrent delete can win between the read and this delete;
		// a zero-row delete must not release the counters.
		res := tx.Delete(&FollowModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := bumpProfileCounter(tx, model.FollowingID, "followers_count", -1); err != nil {
			return err
		}
		return bumpProfileCounter(tx, model.FollowerID, "following_count", -1)
	})
}

// CreateSave inserts a save edge. Saves carry no counter.
func (s *GormStore) CreateSave(sv domain.Save) error {
	model := saveToModel(sv)
	return translateErr(s.db.Create(&model).Error)
}

// GetSave returns a save edge by id.
func (s *GormStore) GetSave(id string) (domain.Save, bool, error) {
	var model SaveModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Save{}, false, nil
		}
		return domain.Save{}, false, err
	}
	return saveFromModel(model), true, nil
}

// ListSavesByUser returns a user's saves, newest first.
func (s *GormStore) ListSavesByUser(userID string) ([]domain.Save, error) {
	var models []SaveModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	saves := make([]domain.Save, 0, len(models))
	for _, m := range models {
		saves = append(saves, saveFromModel(m))
	}
	return saves, nil
}

// DeleteSave removes a save edge.
func (s *GormStore) DeleteSave(id string) error {
	res := s.db.Delete(&SaveModel{}, "id = ?", id)
	if res.Error != nil {
		return translateErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMessage inserts a message row.
func (s *GormStore) CreateMessage(m domain.Message) error {
	model := messageToModel(m)
	return translateErr(s.db.Create(&model).Error)
}

// GetMessage returns a message by id.
func (s *GormStore) GetMessage(id string) (domain.Message, bool, error) {
	var model MessageModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Message{}, false, nil
		}
		return domain.Message{}, false, err
	}
	return messageFromModel(model), true, nil
}

// ListMessagesBetween returns the conversation between two identities in
// chronological order, both directions.
func (s *GormStore) ListMessagesBetween(userA, userB string, limit int) ([]domain.Message, error) {
	query := s.db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userA, userB, userB, userA,
	).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []MessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, m := range models {
		msgs = append(msgs, messageFromModel(m))
	}
	return msgs, nil
}

// VerifyCounters recomputes live edge counts and reports drift.
func (s *GormStore) VerifyCounters() error {
	var posts []struct {
		ID            string
		LikesCount    int64
		CommentsCount int64
		LiveLikes     int64
		LiveComments  int64
	}
	if err := s.db.Raw(`
		SELECT p.id, p.likes_count, p.comments_count,
			(SELECT COUNT(*) FROM like_models l WHERE l.post_id = p.id) AS live_likes,
			(SELECT COUNT(*) FROM comment_models c WHERE c.post_id = p.id) AS live_comments
		FROM post_models p
	`).Scan(&posts).Error; err != nil {
		return err
	}
	for _, p := range posts {
		if p.LikesCount != p.LiveLikes {
			return fmt.Errorf("counter drift: post %s likes_count=%d live=%d", p.ID, p.LikesCount, p.LiveLikes)
		}
		if p.CommentsCount != p.LiveComments {
			return fmt.Errorf("counter drift: post %s comments_count=%d live=%d", p.ID, p.CommentsCount, p.LiveComments)
		}
	}

	var profiles []struct {
		ID             string
		FollowersCount int64
		FollowingCount int64
		PostsCount     int64
		LiveFollowers  int64
		LiveFollowing  int64
		LivePosts      int64
	}
	if err := s.db.Raw(`
		SELECT pr.id, pr.followers_count, pr.following_count, pr.posts_count,
			(SELECT COUNT(*) FROM follow_models f WHERE f.following_id = pr.id) AS live_followers,
			(SELECT COUNT(*) FROM follow_models f WHERE f.follower_id = pr.id) AS live_following,
			(SELECT COUNT(*) FROM post_models p WHERE p.owner_id = pr.id) AS live_posts
		FROM profile_models pr
	`).Scan(&profiles).Error; err != nil {
		return err
	}
	for _, p := range profiles {
		if p.FollowersCount != p.LiveFollowers || p.FollowingCount != p.LiveFollowing || p.PostsCount != p.LivePosts {
			return fmt.Errorf("counter drift: profile %s", p.ID)
		}
	}
	return nil
}

func profileToModel(p domain.Profile) ProfileModel {
	return ProfileModel{
		ID:             p.ID,
		Username:       p.Username,
		Bio:            p.Bio,
		AvatarURL:      p.AvatarURL,
		Website:        p.Website,
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowingCount,
		PostsCount:     p.PostsCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func profileFromModel(m ProfileModel) domain.Profile {
	return domain.Profile{
		ID:             m.ID,
		Username:       m.Username,
		Bio:            m.Bio,
		AvatarURL:      m.AvatarURL,
		Website:        m.Website,
		FollowersCount: m.FollowersCount,
		FollowingCount: m.FollowingCount,
		PostsCount:     m.PostsCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func postToModel(p domain.Post) PostModel {
	return PostModel{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Caption:       p.Caption,
		MediaURL:      p.MediaURL,
		IsReel:        p.IsReel,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func postFromModel(m PostModel) domain.Post {
	return domain.Post{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Caption:       m.Caption,
		MediaURL:      m.MediaURL,
		IsReel:        m.IsReel,
		LikesCount:    m.LikesCount,
		CommentsCount: m.CommentsCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func storyToModel(s domain.Story) StoryModel {
	return StoryModel{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		MediaURL:  s.MediaURL,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func storyFromModel(m StoryModel) domain.Story {
	return domain.Story{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		MediaURL:  m.MediaURL,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func likeToModel(l domain.Like) LikeModel {
	return LikeModel{ID: l.ID, UserID: l.UserID, PostID: l.PostID, CreatedAt: l.CreatedAt}
}

func likeFromModel(m LikeModel) domain.Like {
	return domain.Like{ID: m.ID, UserID: m.UserID, PostID: m.PostID, CreatedAt: m.CreatedAt}
}

func commentToModel(c domain.Comment) CommentModel {
	return CommentModel{ID: c.ID, UserID: c.UserID, PostID: c.PostID, Content: c.Content, CreatedAt: c.CreatedAt}
}

func commentFromModel(m CommentModel) domain.Comment {
	return domain.Comment{ID: m.ID, UserID: m.UserID, PostID: m.PostID, Content: m.Content, CreatedAt: m.CreatedAt}
}

func followToModel(f domain.Follow) FollowModel {
	return FollowModel{ID: f.ID, FollowerID: f.FollowerID, FollowingID: f.FollowingID, CreatedAt: f.CreatedAt}
}

func followFromModel(m FollowModel) domain.Follow {
	return domain.Follow{ID: m.ID, FollowerID: m.FollowerID, FollowingID: m.FollowingID, CreatedAt: m.CreatedAt}
}

func saveToModel(s domain.Save) SaveModel {
	return SaveModel{ID: s.ID, UserID: s.UserID, PostID: s.PostID, CreatedAt: s.CreatedAt}
}

func saveFromModel(m SaveModel) domain.Save {
	return domain.Save{ID: m.ID, UserID: m.UserID, PostID: m.PostID, CreatedAt: m.CreatedAt}
}

func messageToModel(m domain.Message) MessageModel {
	return MessageModel{ID: m.ID, SenderID: m.SenderID, ReceiverID: m.ReceiverID, Content: m.Content, CreatedAt: m.CreatedAt}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{ID: m.ID, SenderID: m.SenderID, ReceiverID: m.ReceiverID, Content: m.Content, CreatedAt: m.CreatedAt}
}
