package app

import (
	"errors"
	"testing"
	"time"

	"snapfeed/pkg/domain"
	"snapfeed/pkg/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func mustProfile(t *testing.T, a *App, id string) domain.Profile {
	t.Helper()
	sub := domain.Subject{ID: id}
	p, err := a.CreateProfile(sub, id, id, "", "", "")
	if err != nil {
		t.Fatalf("create profile %s: %v", id, err)
	}
	return p
}

func TestCreateProfileRequiresMatchingIdentity(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.CreateProfile(domain.Subject{}, "u1", "u1", "", "", ""); !errors.Is(err, ErrDenied) {
		t.Fatalf("unauthenticated create profile: got %v, want ErrDenied", err)
	}
	if _, err := a.CreateProfile(domain.Subject{ID: "u2"}, "u1", "u1", "", "", ""); !errors.Is(err, ErrDenied) {
		t.Fatalf("foreign-id create profile: got %v, want ErrDenied", err)
	}
	if _, err := a.CreateProfile(domain.Subject{ID: "u1"}, "u1", "u1", "", "", ""); err != nil {
		t.Fatalf("own create profile: %v", err)
	}
	// First-authentication registration happens exactly once.
	if _, err := a.CreateProfile(domain.Subject{ID: "u1"}, "u1", "other-name", "", "", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("second registration: got %v, want ErrConflict", err)
	}
}

func TestDuplicateUsernameConflicts(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	if _, err := a.CreateProfile(domain.Subject{ID: "u2"}, "u2", "u1", "", "", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate username: got %v, want ErrConflict", err)
	}
}

func TestCreatePostDeniedWhenUnauthenticated(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	if _, err := a.CreatePost(domain.Subject{}, "u1", "hi", "https://m/u1/p.jpg", false); !errors.Is(err, ErrDenied) {
		t.Fatalf("unauthenticated create post: got %v, want ErrDenied", err)
	}
	post, err := a.CreatePost(domain.Subject{ID: "u1"}, "u1", "hi", "https://m/u1/p.jpg", false)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.OwnerID != "u1" {
		t.Fatalf("returned owner = %q, want u1", post.OwnerID)
	}
}

func TestLikeLifecycleKeepsCounterExact(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	u2 := domain.Subject{ID: "u2"}

	post, err := a.CreatePost(domain.Subject{ID: "u1"}, "u1", "", "https://m/u1/p.jpg", false)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	like, err := a.CreateLike(u2, "u2", post.ID)
	if err != nil {
		t.Fatalf("create like: %v", err)
	}
	if got, _ := a.GetPost(u2, post.ID); got.LikesCount != 1 {
		t.Fatalf("likes_count after like = %d, want 1", got.LikesCount)
	}

	if _, err := a.CreateLike(u2, "u2", post.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate like: got %v, want ErrConflict", err)
	}
	if got, _ := a.GetPost(u2, post.ID); got.LikesCount != 1 {
		t.Fatalf("likes_count after duplicate = %d, want 1", got.LikesCount)
	}

	if err := a.DeleteLike(u2, like.ID); err != nil {
		t.Fatalf("delete like: %v", err)
	}
	if got, _ := a.GetPost(u2, post.ID); got.LikesCount != 0 {
		t.Fatalf("likes_count after unlike = %d, want 0", got.LikesCount)
	}
}

func TestLikeOnBehalfOfAnotherUserDenied(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	post, _ := a.CreatePost(domain.Subject{ID: "u1"}, "u1", "", "https://m/u1/p.jpg", false)

	if _, err := a.CreateLike(domain.Subject{ID: "u1"}, "u2", post.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("like as someone else: got %v, want ErrDenied", err)
	}
}

func TestDeleteLikeByNonOwnerDenied(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	post, _ := a.CreatePost(domain.Subject{ID: "u1"}, "u1", "", "https://m/u1/p.jpg", false)
	like, _ := a.CreateLike(domain.Subject{ID: "u2"}, "u2", post.ID)

	if err := a.DeleteLike(domain.Subject{ID: "u1"}, like.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("delete foreign like: got %v, want ErrDenied", err)
	}
	if got, _ := a.GetPost(domain.Subject{}, post.ID); got.LikesCount != 1 {
		t.Fatalf("denied delete must not move the counter: %d", got.LikesCount)
	}
}

func TestLikeMissingPostNotFound(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	if _, err := a.CreateLike(domain.Subject{ID: "u1"}, "u1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("like on missing post: got %v, want ErrNotFound", err)
	}
}

func TestCommentRoundTripRestoresCounter(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	u2 := domain.Subject{ID: "u2"}
	post, _ := a.CreatePost(domain.Subject{ID: "u1"}, "u1", "", "https://m/u1/p.jpg", false)

	before, _ := a.GetPost(u2, post.ID)
	comment, err := a.CreateComment(u2, "u2", post.ID, "nice")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if got, _ := a.GetPost(u2, post.ID); got.CommentsCount != before.CommentsCount+1 {
		t.Fatalf("comments_count after comment = %d", got.CommentsCount)
	}
	if err := a.DeleteComment(u2, comment.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if got, _ := a.GetPost(u2, post.ID); got.CommentsCount != before.CommentsCount {
		t.Fatalf("comments_count after round trip = %d, want %d", got.CommentsCount, before.CommentsCount)
	}
}

func TestUpdateCommentOnlyByAuthor(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	post, _ := a.CreatePost(domain.Subject{ID: "u1"}, "u1", "", "https://m/u1/p.jpg", false)
	comment, _ := a.CreateComment(domain.Subject{ID: "u2"}, "u2", post.ID, "first")

	if _, err := a.UpdateComment(domain.Subject{ID: "u1"}, comment.ID, "edited"); !errors.Is(err, ErrDenied) {
		t.Fatalf("foreign comment update: got %v, want ErrDenied", err)
	}
	updated, err := a.UpdateComment(domain.Subject{ID: "u2"}, comment.ID, "edited")
	if err != nil {
		t.Fatalf("own comment update: %v", err)
	}
	if updated.Content != "edited" {
		t.Fatalf("content = %q", updated.Content)
	}
}

func TestDeletePostCascades(t *testing.T) {
	mem := store.NewMemoryStore()
	a, err := New(Config{Store: mem})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	u1, u2 := domain.Subject{ID: "u1"}, domain.Subject{ID: "u2"}

	post, _ := a.CreatePost(u1, "u1", "", "https://m/u1/p.jpg", false)
	like, _ := a.CreateLike(u2, "u2", post.ID)
	comment, _ := a.CreateComment(u2, "u2", post.ID, "hey")
	save, _ := a.CreateSave(u2, "u2", post.ID)

	if err := a.DeletePost(u2, post.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("delete foreign post: got %v, want ErrDenied", err)
	}
	if err := a.DeletePost(u1, post.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if _, ok, _ := mem.GetLike(like.ID); ok {
		t.Fatalf("like survived post delete")
	}
	if _, ok, _ := mem.GetComment(comment.ID); ok {
		t.Fatalf("comment survived post delete")
	}
	if _, ok, _ := mem.GetSave(save.ID); ok {
		t.Fatalf("save survived post delete")
	}
	if p, _ := a.GetProfile(u1, "u1"); p.PostsCount != 0 {
		t.Fatalf("posts_count after delete = %d, want 0", p.PostsCount)
	}
	if err := mem.VerifyCounters(); err != nil {
		t.Fatalf("counters after cascade: %v", err)
	}
}

func TestFollowCountersAndSelfFollow(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	u1 := domain.Subject{ID: "u1"}

	follow, err := a.CreateFollow(u1, "u1", "u2")
	if err != nil {
		t.Fatalf("create follow: %v", err)
	}
	if p, _ := a.GetProfile(u1, "u2"); p.FollowersCount != 1 {
		t.Fatalf("followers_count = %d, want 1", p.FollowersCount)
	}
	if p, _ := a.GetProfile(u1, "u1"); p.FollowingCount != 1 {
		t.Fatalf("following_count = %d, want 1", p.FollowingCount)
	}

	if _, err := a.CreateFollow(u1, "u1", "u2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate follow: got %v, want ErrConflict", err)
	}
	if err := a.DeleteFollow(domain.Subject{ID: "u2"}, follow.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("followee unfollowing follower: got %v, want ErrDenied", err)
	}
	if err := a.DeleteFollow(u1, follow.ID); err != nil {
		t.Fatalf("delete follow: %v", err)
	}
	if p, _ := a.GetProfile(u1, "u2"); p.FollowersCount != 0 {
		t.Fatalf("followers_count after unfollow = %d, want 0", p.FollowersCount)
	}

	// Self-follow carries no extra restriction.
	if _, err := a.CreateFollow(u1, "u1", "u1"); err != nil {
		t.Fatalf("self follow: %v", err)
	}
	if p, _ := a.GetProfile(u1, "u1"); p.FollowersCount != 1 || p.FollowingCount != 1 {
		t.Fatalf("self follow counters = %d/%d, want 1/1", p.FollowersCount, p.FollowingCount)
	}
}

func TestSavesArePrivate(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	u1, u2 := domain.Subject{ID: "u1"}, domain.Subject{ID: "u2"}
	post, _ := a.CreatePost(u1, "u1", "", "https://m/u1/p.jpg", false)
	if _, err := a.CreateSave(u2, "u2", post.ID); err != nil {
		t.Fatalf("create save: %v", err)
	}

	if _, err := a.ListSaves(u1, "u2"); !errors.Is(err, ErrDenied) {
		t.Fatalf("foreign saves list: got %v, want ErrDenied", err)
	}
	saves, err := a.ListSaves(u2, "u2")
	if err != nil || len(saves) != 1 {
		t.Fatalf("own saves list: %v (%d)", err, len(saves))
	}
	if _, err := a.CreateSave(u2, "u2", post.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate save: got %v, want ErrConflict", err)
	}
}

func TestMessageVisibilityLimitedToParticipants(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	mustProfile(t, a, "u2")
	mustProfile(t, a, "u3")
	u1, u2, u3 := domain.Subject{ID: "u1"}, domain.Subject{ID: "u2"}, domain.Subject{ID: "u3"}

	if _, err := a.CreateMessage(u2, "u1", "u2", "spoof"); !errors.Is(err, ErrDenied) {
		t.Fatalf("spoofed sender: got %v, want ErrDenied", err)
	}
	msg, err := a.CreateMessage(u1, "u1", "u2", "hello")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}

	if _, err := a.GetMessage(u1, msg.ID); err != nil {
		t.Fatalf("sender read: %v", err)
	}
	if _, err := a.GetMessage(u2, msg.ID); err != nil {
		t.Fatalf("receiver read: %v", err)
	}
	if _, err := a.GetMessage(u3, msg.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("outsider read: got %v, want ErrDenied", err)
	}
	if _, err := a.GetMessage(domain.Subject{}, msg.ID); !errors.Is(err, ErrDenied) {
		t.Fatalf("anonymous read: got %v, want ErrDenied", err)
	}

	msgs, err := a.ListMessages(u2, "u1", 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("conversation list: %v (%d)", err, len(msgs))
	}
	if _, err := a.ListMessages(domain.Subject{}, "u1", 0); !errors.Is(err, ErrDenied) {
		t.Fatalf("anonymous conversation list: got %v, want ErrDenied", err)
	}
}

func TestStoryExpiryHidesRows(t *testing.T) {
	a := newTestApp(t)
	mustProfile(t, a, "u1")
	u1 := domain.Subject{ID: "u1"}

	active, err := a.CreateStory(u1, "u1", "https://m/u1/s1.mp4", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("create active story: %v", err)
	}
	expired, err := a.CreateStory(u1, "u1", "https://m/u1/s2.mp4", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("create expired story: %v", err)
	}

	stories, err := a.ListStories(domain.Subject{}, "u1")
	if err != nil {
		t.Fatalf("list stories: %v", err)
	}
	if len(stories) != 1 || stories[0].ID != active.ID {
		t.Fatalf("expired story leaked into listing: %+v", stories)
	}
	if _, err := a.GetStory(u1, expired.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired story read: got %v, want ErrNotFound", err)
	}
	// The owner can still delete an expired story.
	if err := a.DeleteStory(u1, expired.ID); err != nil {
		t.Fatalf("delete expired story: %v", err)
	}
}
