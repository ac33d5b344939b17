package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"snapfeed/pkg/domain"
)

// MemoryStore keeps all rows in-process. It mirrors the GormStore
// semantics exactly (uniqueness, referential checks, counter maintenance,
// cascade) so tests and local wiring exercise the same contract.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	username map[string]string // username -> profile id
	posts    map[string]domain.Post
	stories  map[string]domain.Story
	likes    map[string]domain.Like
	likePair map[[2]string]string // (user, post) -> like id
	comments map[string]domain.Comment
	follows  map[string]domain.Follow
	followPr map[[2]string]string // (follower, following) -> follow id
	saves    map[string]domain.Save
	savePair map[[2]string]string // (user, post) -> save id
	messages map[string]domain.Message
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]domain.Profile),
		username: make(map[string]string),
		posts:    make(map[string]domain.Post),
		stories:  make(map[string]domain.Story),
		likes:    make(map[string]domain.Like),
		likePair: make(map[[2]string]string),
		comments: make(map[string]domain.Comment),
		follows:  make(map[string]domain.Follow),
		followPr: make(map[[2]string]string),
		saves:    make(map[string]domain.Save),
		savePair: make(map[[2]string]string),
		messages: make(map[string]domain.Message),
	}
}

func (m *MemoryStore) CreateProfile(p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; exists {
		return ErrDuplicate
	}
	if _, taken := m.username[p.Username]; taken {
		return ErrDuplicate
	}
	m.profiles[p.ID] = p
	m.username[p.Username] = p.ID
	return nil
}

func (m *MemoryStore) GetProfile(id string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *MemoryStore) GetProfileByUsername(username string) (domain.Profile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.username[username]
	if !ok {
		return domain.Profile{}, false, nil
	}
	p, ok := m.profiles[id]
	return p, ok, nil
}

func (m *MemoryStore) UpdateProfile(p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.profiles[p.ID]
	if !ok {
		return ErrNotFound
	}
	if p.Username != cur.Username {
		if _, taken := m.username[p.Username]; taken {
			return ErrDuplicate
		}
		delete(m.username, cur.Username)
		m.username[p.Username] = p.ID
	}
	cur.Username = p.Username
	cur.Bio = p.Bio
	cur.AvatarURL = p.AvatarURL
	cur.Website = p.Website
	cur.UpdatedAt = p.UpdatedAt
	m.profiles[p.ID] = cur
	return nil
}

func (m *MemoryStore) DeleteProfile(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}

	owned := make(map[string]bool)
	for postID, p := range m.posts {
		if p.OwnerID == id {
			owned[postID] = true
		}
	}

	// Release counters held on surviving rows before dropping the edges.
	for likeID, l := range m.likes {
		if l.UserID != id && !owned[l.PostID] {
			continue
		}
		if l.UserID == id && !owned[l.PostID] {
			m.bumpPostLikes(l.PostID, -1)
		}
		delete(m.likes, likeID)
		delete(m.likePair, [2]string{l.UserID, l.PostID})
	}
	for commentID, c := range m.comments {
		if c.UserID != id && !owned[c.PostID] {
			continue
		}
		if c.UserID == id && !owned[c.PostID] {
			m.bumpPostComments(c.PostID, -1)
		}
		delete(m.comments, commentID)
	}
	for followID, f := range m.follows {
		if f.FollowerID != id && f.FollowingID != id {
			continue
		}
		if f.FollowerID == id && f.FollowingID != id {
			m.bumpProfile(f.FollowingID, func(p *domain.Profile) { p.FollowersCount-- })
		}
		if f.FollowingID == id && f.FollowerID != id {
			m.bumpProfile(f.FollowerID, func(p *domain.Profile) { p.FollowingCount-- })
		}
		delete(m.follows, followID)
		delete(m.followPr, [2]string{f.FollowerID, f.FollowingID})
	}
	for saveID, sv := range m.saves {
		if sv.UserID == id || owned[sv.PostID] {
			delete(m.saves, saveID)
			delete(m.savePair, [2]string{sv.UserID, sv.PostID})
		}
	}
	for msgID, msg := range m.messages {
		if msg.SenderID == id || msg.ReceiverID == id {
			delete(m.messages, msgID)
		}
	}
	for storyID, st := range m.stories {
		if st.OwnerID == id {
			delete(m.stories, storyID)
		}
	}
	for postID := range owned {
		delete(m.posts, postID)
	}
	delete(m.username, cur.Username)
	delete(m.profiles, id)
	return nil
}

func (m *MemoryStore) CreatePost(p domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.posts[p.ID]; exists {
		return ErrDuplicate
	}
	if _, ok := m.profiles[p.OwnerID]; !ok {
		return ErrNotFound
	}
	m.posts[p.ID] = p
	m.bumpProfile(p.OwnerID, func(pr *domain.Profile) { pr.PostsCount++ })
	return nil
}

func (m *MemoryStore) GetPost(id string) (domain.Post, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	return p, ok, nil
}

func (m *MemoryStore) ListPostsByOwner(ownerID string) ([]domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var posts []domain.Post
	for _, p := range m.posts {
		if p.OwnerID == ownerID {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (m *MemoryStore) ListReels(limit int) ([]domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var posts []domain.Post
	for _, p := range m.posts {
		if p.IsReel {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (m *MemoryStore) UpdatePostCaption(id, caption string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	p.Caption = caption
	p.UpdatedAt = at
	m.posts[id] = p
	return nil
}

func (m *MemoryStore) DeletePost(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	for likeID, l := range m.likes {
		if l.PostID == id {
			delete(m.likes, likeID)
			delete(m.likePair, [2]string{l.UserID, l.PostID})
		}
	}
	for commentID, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, commentID)
		}
	}
	for saveID, sv := range m.saves {
		if sv.PostID == id {
			delete(m.saves, saveID)
			delete(m.savePair, [2]string{sv.UserID, sv.PostID})
		}
	}
	delete(m.posts, id)
	m.bumpProfile(p.OwnerID, func(pr *domain.Profile) { pr.PostsCount-- })
	return nil
}

func (m *MemoryStore) CreateStory(st domain.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stories[st.ID]; exists {
		return ErrDuplicate
	}
	if _, ok := m.profiles[st.OwnerID]; !ok {
		return ErrNotFound
	}
	m.stories[st.ID] = st
	return nil
}

func (m *MemoryStore) GetStory(id string) (domain.Story, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stories[id]
	return st, ok, nil
}

func (m *MemoryStore) ListActiveStoriesByOwner(ownerID string, now time.Time) ([]domain.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stories []domain.Story
	for _, st := range m.stories {
		if st.OwnerID == ownerID && !st.Expired(now) {
			stories = append(stories, st)
		}
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].CreatedAt.Before(stories[j].CreatedAt) })
	return stories, nil
}

func (m *MemoryStore) DeleteStory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[id]; !ok {
		return ErrNotFound
	}
	delete(m.stories, id)
	return nil
}

func (m *MemoryStore) CreateLike(l domain.Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[l.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.posts[l.PostID]; !ok {
		return ErrNotFound
	}
	pair := [2]string{l.UserID, l.PostID}
	if _, dup := m.likePair[pair]; dup {
		return ErrDuplicate
	}
	m.likes[l.ID] = l
	m.likePair[pair] = l.ID
	m.bumpPostLikes(l.PostID, 1)
	return nil
}

func (m *MemoryStore) GetLike(id string) (domain.Like, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.likes[id]
	return l, ok, nil
}

func (m *MemoryStore) DeleteLike(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.likes[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.likes, id)
	delete(m.likePair, [2]string{l.UserID, l.PostID})
	m.bumpPostLikes(l.PostID, -1)
	return nil
}

func (m *MemoryStore) CreateComment(c domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[c.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.posts[c.PostID]; !ok {
		return ErrNotFound
	}
	m.comments[c.ID] = c
	m.bumpPostComments(c.PostID, 1)
	return nil
}

func (m *MemoryStore) GetComment(id string) (domain.Comment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	return c, ok, nil
}

func (m *MemoryStore) ListCommentsByPost(postID string) ([]domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var comments []domain.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (m *MemoryStore) UpdateCommentContent(id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Content = content
	m.comments[id] = c
	return nil
}

func (m *MemoryStore) DeleteComment(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.comments, id)
	m.bumpPostComments(c.PostID, -1)
	return nil
}

func (m *MemoryStore) CreateFollow(f domain.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[f.FollowerID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.profiles[f.FollowingID]; !ok {
		return ErrNotFound
	}
	pair := [2]string{f.FollowerID, f.FollowingID}
	if _, dup := m.followPr[pair]; dup {
		return ErrDuplicate
	}
	m.follows[f.ID] = f
	m.followPr[pair] = f.ID
	m.bumpProfile(f.FollowingID, func(p *domain.Profile) { p.FollowersCount++ })
	m.bumpProfile(f.FollowerID, func(p *domain.Profile) { p.FollowingCount++ })
	return nil
}

func (m *MemoryStore) GetFollow(id string) (domain.Follow, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.follows[id]
	return f, ok, nil
}

func (m *MemoryStore) ListFollowers(profileID string) ([]domain.Follow, error) {
	return m.listFollows(func(f domain.Follow) bool { return f.FollowingID == profileID })
}

func (m *MemoryStore) ListFollowing(profileID string) ([]domain.Follow, error) {
	return m.listFollows(func(f domain.Follow) bool { return f.FollowerID == profileID })
}

func (m *MemoryStore) listFollows(match func(domain.Follow) bool) ([]domain.Follow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var follows []domain.Follow
	for _, f := range m.follows {
		if match(f) {
			follows = append(follows, f)
		}
	}
	sort.Slice(follows, func(i, j int) bool { return follows[i].CreatedAt.Before(follows[j].CreatedAt) })
	return follows, nil
}

func (m *MemoryStore) DeleteFollow(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.follows[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.follows, id)
	delete(m.followPr, [2]string{f.FollowerID, f.FollowingID})
	m.bumpProfile(f.FollowingID, func(p *domain.Profile) { p.FollowersCount-- })
	m.bumpProfile(f.FollowerID, func(p *domain.Profile) { p.FollowingCount-- })
	return nil
}

func (m *MemoryStore) CreateSave(sv domain.Save) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[sv.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.posts[sv.PostID]; !ok {
		return ErrNotFound
	}
	pair := [2]string{sv.UserID, sv.PostID}
	if _, dup := m.savePair[pair]; dup {
		return ErrDuplicate
	}
	m.saves[sv.ID] = sv
	m.savePair[pair] = sv.ID
	return nil
}

func (m *MemoryStore) GetSave(id string) (domain.Save, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sv, ok := m.saves[id]
	return sv, ok, nil
}

func (m *MemoryStore) ListSavesByUser(userID string) ([]domain.Save, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var saves []domain.Save
	for _, sv := range m.saves {
		if sv.UserID == userID {
			saves = append(saves, sv)
		}
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].CreatedAt.After(saves[j].CreatedAt) })
	return saves, nil
}

func (m *MemoryStore) DeleteSave(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sv, ok := m.saves[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.saves, id)
	delete(m.savePair, [2]string{sv.UserID, sv.PostID})
	return nil
}

func (m *MemoryStore) CreateMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[msg.SenderID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.profiles[msg.ReceiverID]; !ok {
		return ErrNotFound
	}
	m.messages[msg.ID] = msg
	return nil
}

func (m *MemoryStore) GetMessage(id string) (domain.Message, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	return msg, ok, nil
}

func (m *MemoryStore) ListMessagesBetween(userA, userB string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var msgs []domain.Message
	for _, msg := range m.messages {
		if (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA) {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (m *MemoryStore) VerifyCounters() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	likeCounts := make(map[string]int64)
	for _, l := range m.likes {
		likeCounts[l.PostID]++
	}
	commentCounts := make(map[string]int64)
	for _, c := range m.comments {
		commentCounts[c.PostID]++
	}
	postCounts := make(map[string]int64)
	for id, p := range m.posts {
		postCounts[p.OwnerID]++
		if p.LikesCount != likeCounts[id] {
			return fmt.Errorf("counter drift: post %s likes_count=%d live=%d", id, p.LikesCount, likeCounts[id])
		}
		if p.CommentsCount != commentCounts[id] {
			return fmt.Errorf("counter drift: post %s comments_count=%d live=%d", id, p.CommentsCount, commentCounts[id])
		}
	}
	followerCounts := make(map[string]int64)
	followingCounts := make(map[string]int64)
	for _, f := range m.follows {
		followerCounts[f.FollowingID]++
		followingCounts[f.FollowerID]++
	}
	for id, p := range m.profiles {
		if p.FollowersCount != followerCounts[id] || p.FollowingCount != followingCounts[id] || p.PostsCount != postCounts[id] {
			return fmt.Errorf("counter drift: profile %s", id)
		}
	}
	return nil
}

func (m *MemoryStore) bumpPostLikes(postID string, delta int64) {
	if p, ok := m.posts[postID]; ok {
		p.LikesCount += delta
		m.posts[postID] = p
	}
}

func (m *MemoryStore) bumpPostComments(postID string, delta int64) {
	if p, ok := m.posts[postID]; ok {
		p.CommentsCount += delta
		m.posts[postID] = p
	}
}

func (m *MemoryStore) bumpProfile(id string, fn func(*domain.Profile)) {
	if p, ok := m.profiles[id]; ok {
		fn(&p)
		m.profiles[id] = p
	}
}
