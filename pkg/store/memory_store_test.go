package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"snapfeed/pkg/domain"
)

func seedProfile(t *testing.T, s Store, id string) {
	t.Helper()
	err := s.CreateProfile(domain.Profile{
		ID:        id,
		Username:  id,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
}

func seedPost(t *testing.T, s Store, id, ownerID string) {
	t.Helper()
	err := s.CreatePost(domain.Post{
		ID:        id,
		OwnerID:   ownerID,
		MediaURL:  "https://m/" + ownerID + "/" + id + ".jpg",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func TestMemoryStoreDuplicateUsername(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	err := s.CreateProfile(domain.Profile{ID: "u2", Username: "u1"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate username: got %v, want ErrDuplicate", err)
	}
}

func TestMemoryStoreLikeCounter(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	seedProfile(t, s, "u2")
	seedPost(t, s, "p1", "u1")

	if err := s.CreateLike(domain.Like{ID: "l1", UserID: "u2", PostID: "p1"}); err != nil {
		t.Fatalf("create like: %v", err)
	}
	if p, _, _ := s.GetPost("p1"); p.LikesCount != 1 {
		t.Fatalf("likes_count = %d, want 1", p.LikesCount)
	}

	err := s.CreateLike(domain.Like{ID: "l2", UserID: "u2", PostID: "p1"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate like: got %v, want ErrDuplicate", err)
	}
	if p, _, _ := s.GetPost("p1"); p.LikesCount != 1 {
		t.Fatalf("likes_count after rejected duplicate = %d, want 1", p.LikesCount)
	}

	if err := s.DeleteLike("l1"); err != nil {
		t.Fatalf("delete like: %v", err)
	}
	if p, _, _ := s.GetPost("p1"); p.LikesCount != 0 {
		t.Fatalf("likes_count after delete = %d, want 0", p.LikesCount)
	}
	if err := s.VerifyCounters(); err != nil {
		t.Fatalf("verify counters: %v", err)
	}
}

func TestMemoryStoreLikeMissingPost(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	err := s.CreateLike(domain.Like{ID: "l1", UserID: "u1", PostID: "absent"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("like on missing post: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStorePostsCounter(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	seedPost(t, s, "p1", "u1")
	seedPost(t, s, "p2", "u1")
	if p, _, _ := s.GetProfile("u1"); p.PostsCount != 2 {
		t.Fatalf("posts_count = %d, want 2", p.PostsCount)
	}
	if err := s.DeletePost("p1"); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if p, _, _ := s.GetProfile("u1"); p.PostsCount != 1 {
		t.Fatalf("posts_count after delete = %d, want 1", p.PostsCount)
	}
}

func TestMemoryStoreDeletePostCascades(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	seedProfile(t, s, "u2")
	seedPost(t, s, "p1", "u1")

	if err := s.CreateLike(domain.Like{ID: "l1", UserID: "u2", PostID: "p1"}); err != nil {
		t.Fatalf("create like: %v", err)
	}
	if err := s.CreateComment(domain.Comment{ID: "c1", UserID: "u2", PostID: "p1", Content: "x"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := s.CreateSave(domain.Save{ID: "s1", UserID: "u2", PostID: "p1"}); err != nil {
		t.Fatalf("create save: %v", err)
	}

	if err := s.DeletePost("p1"); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, ok, _ := s.GetLike("l1"); ok {
		t.Fatalf("like survived post delete")
	}
	if _, ok, _ := s.GetComment("c1"); ok {
		t.Fatalf("comment survived post delete")
	}
	if _, ok, _ := s.GetSave("s1"); ok {
		t.Fatalf("save survived post delete")
	}
	if err := s.VerifyCounters(); err != nil {
		t.Fatalf("verify counters: %v", err)
	}
}

func TestMemoryStoreDeleteProfileRepairsCounters(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	seedProfile(t, s, "u2")
	seedProfile(t, s, "u3")
	seedPost(t, s, "p1", "u1") // survives, loses u2's edges
	seedPost(t, s, "p2", "u2") // deleted with u2

	// u2 interacts with u1's post and follows both directions.
	if err := s.CreateLike(domain.Like{ID: "l1", UserID: "u2", PostID: "p1"}); err != nil {
		t.Fatalf("create like: %v", err)
	}
	if err := s.CreateComment(domain.Comment{ID: "c1", UserID: "u2", PostID: "p1", Content: "x"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := s.CreateFollow(domain.Follow{ID: "f1", FollowerID: "u2", FollowingID: "u1"}); err != nil {
		t.Fatalf("create follow f1: %v", err)
	}
	if err := s.CreateFollow(domain.Follow{ID: "f2", FollowerID: "u3", FollowingID: "u2"}); err != nil {
		t.Fatalf("create follow f2: %v", err)
	}
	// u3 likes the doomed post; that edge simply disappears.
	if err := s.CreateLike(domain.Like{ID: "l2", UserID: "u3", PostID: "p2"}); err != nil {
		t.Fatalf("create like l2: %v", err)
	}
	if err := s.CreateMessage(domain.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi"}); err != nil {
		t.Fatalf("create message: %v", err)
	}

	if err := s.DeleteProfile("u2"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	if _, ok, _ := s.GetProfile("u2"); ok {
		t.Fatalf("profile survived delete")
	}
	if _, ok, _ := s.GetPost("p2"); ok {
		t.Fatalf("owned post survived profile delete")
	}
	for _, id := range []string{"l1", "l2"} {
		if _, ok, _ := s.GetLike(id); ok {
			t.Fatalf("like %s survived profile delete", id)
		}
	}
	if _, ok, _ := s.GetComment("c1"); ok {
		t.Fatalf("comment survived profile delete")
	}
	if _, ok, _ := s.GetFollow("f1"); ok {
		t.Fatalf("outbound follow survived profile delete")
	}
	if _, ok, _ := s.GetFollow("f2"); ok {
		t.Fatalf("inbound follow survived profile delete")
	}
	if _, ok, _ := s.GetMessage("m1"); ok {
		t.Fatalf("message survived profile delete")
	}

	if p, _, _ := s.GetPost("p1"); p.LikesCount != 0 || p.CommentsCount != 0 {
		t.Fatalf("surviving post counters = %d/%d, want 0/0", p.LikesCount, p.CommentsCount)
	}
	if p, _, _ := s.GetProfile("u1"); p.FollowersCount != 0 {
		t.Fatalf("u1 followers_count = %d, want 0", p.FollowersCount)
	}
	if p, _, _ := s.GetProfile("u3"); p.FollowingCount != 0 {
		t.Fatalf("u3 following_count = %d, want 0", p.FollowingCount)
	}
	if err := s.VerifyCounters(); err != nil {
		t.Fatalf("verify counters: %v", err)
	}
}

func TestMemoryStoreFollowCounters(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	seedProfile(t, s, "u2")

	if err := s.CreateFollow(domain.Follow{ID: "f1", FollowerID: "u1", FollowingID: "u2"}); err != nil {
		t.Fatalf("create follow: %v", err)
	}
	err := s.CreateFollow(domain.Follow{ID: "f2", FollowerID: "u1", FollowingID: "u2"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate follow: got %v, want ErrDuplicate", err)
	}
	if p, _, _ := s.GetProfile("u2"); p.FollowersCount != 1 {
		t.Fatalf("followers_count = %d, want 1", p.FollowersCount)
	}
	if err := s.DeleteFollow("f1"); err != nil {
		t.Fatalf("delete follow: %v", err)
	}
	if err := s.VerifyCounters(); err != nil {
		t.Fatalf("verify counters: %v", err)
	}
}

func TestMemoryStoreActiveStoryListing(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	now := time.Now().UTC()

	mk := func(id string, expires time.Time) {
		t.Helper()
		err := s.CreateStory(domain.Story{ID: id, OwnerID: "u1", MediaURL: "https://m/u1/" + id, ExpiresAt: expires, CreatedAt: now})
		if err != nil {
			t.Fatalf("create story %s: %v", id, err)
		}
	}
	mk("s1", now.Add(time.Hour))
	mk("s2", now.Add(-time.Minute))
	mk("s3", now) // expiry boundary counts as expired

	stories, err := s.ListActiveStoriesByOwner("u1", now)
	if err != nil {
		t.Fatalf("list active stories: %v", err)
	}
	if len(stories) != 1 || stories[0].ID != "s1" {
		t.Fatalf("active stories = %+v, want only s1", stories)
	}
}

func TestMemoryStoreConcurrentDeleteReleasesCounterOnce(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "u1")
	seedProfile(t, s, "u2")
	seedPost(t, s, "p1", "u1")
	if err := s.CreateLike(domain.Like{ID: "l1", UserID: "u2", PostID: "p1"}); err != nil {
		t.Fatalf("create like: %v", err)
	}

	// Racing deletes of the same edge: the loser must observe NotFound
	// and leave the counter alone.
	const n = 16
	results := make(chan error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results <- s.DeleteLike("l1")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	close(results)

	var deleted, missing int
	for err := range results {
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, ErrNotFound):
			missing++
		default:
			t.Fatalf("unexpected delete error: %v", err)
		}
	}
	if deleted != 1 || missing != n-1 {
		t.Fatalf("deletes = %d ok / %d not-found, want 1 / %d", deleted, missing, n-1)
	}
	if p, _, _ := s.GetPost("p1"); p.LikesCount != 0 {
		t.Fatalf("likes_count after racing deletes = %d, want 0", p.LikesCount)
	}
	if err := s.VerifyCounters(); err != nil {
		t.Fatalf("verify counters: %v", err)
	}
}

func TestMemoryStoreConcurrentLikes(t *testing.T) {
	s := NewMemoryStore()
	seedProfile(t, s, "owner")
	seedPost(t, s, "p1", "owner")

	const n = 64
	var g errgroup.Group
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("u%03d", i)
		seedProfile(t, s, id)
		g.Go(func() error {
			return s.CreateLike(domain.Like{ID: "like-" + id, UserID: id, PostID: "p1"})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent likes: %v", err)
	}
	if p, _, _ := s.GetPost("p1"); p.LikesCount != n {
		t.Fatalf("likes_count = %d, want %d", p.LikesCount, n)
	}
	if err := s.VerifyCounters(); err != nil {
		t.Fatalf("verify counters: %v", err)
	}
}
