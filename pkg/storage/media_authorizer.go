package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"snapfeed/pkg/domain"
)

// Media namespaces. All three are public-read; writes are scoped to keys
// whose first path segment is the writer's identity id.
const (
	NamespaceAvatars = "avatars"
	NamespacePosts   = "posts"
	NamespaceStories = "stories"
)

// Namespaces lists every known media namespace.
var Namespaces = []string{NamespaceAvatars, NamespacePosts, NamespaceStories}

// ErrMediaDenied is returned when an object operation falls outside the
// caller's namespace scope.
var ErrMediaDenied = errors.New("storage: operation outside caller namespace")

// PublicNamespace reports whether ns is a known public-read namespace.
func PublicNamespace(ns string) bool {
	switch ns {
	case NamespaceAvatars, NamespacePosts, NamespaceStories:
		return true
	}
	return false
}

// CanRead reports whether sub may read an object in ns. The public
// namespaces are readable by anyone, authenticated or not.
func CanRead(sub domain.Subject, ns string) bool {
	_ = sub
	return PublicNamespace(ns)
}

// CanWrite reports whether sub may create, replace, or delete the object
// at key within ns. The first path segment of the key must equal the
// subject's identity id.
func CanWrite(sub domain.Subject, ns, key string) bool {
	if !PublicNamespace(ns) {
		return false
	}
	owner, _, _ := strings.Cut(key, "/")
	return sub.Is(owner)
}

// AuthorizedStore wraps an ObjectStore and enforces the media location
// rules on every operation. Keys, not entity rows, are the addressed
// resource here, which is why this lives apart from the policy engine.
type AuthorizedStore struct {
	inner ObjectStore
}

// NewAuthorizedStore wraps inner with media location checks.
func NewAuthorizedStore(inner ObjectStore) *AuthorizedStore {
	return &AuthorizedStore{inner: inner}
}

// Put uploads an object after verifying write scope.
func (a *AuthorizedStore) Put(ctx context.Context, sub domain.Subject, namespace, key string, r io.Reader, size int64, contentType string) error {
	if !CanWrite(sub, namespace, key) {
		return ErrMediaDenied
	}
	return a.inner.Put(ctx, namespace, key, r, size, contentType)
}

// PresignGet generates a download URL for a public-namespace object.
func (a *AuthorizedStore) PresignGet(ctx context.Context, sub domain.Subject, namespace, key string, expiry time.Duration) (string, error) {
	if !CanRead(sub, namespace) {
		return "", ErrMediaDenied
	}
	return a.inner.PresignGet(ctx, namespace, key, expiry)
}

// Delete removes an object after verifying write scope.
func (a *AuthorizedStore) Delete(ctx context.Context, sub domain.Subject, namespace, key string) error {
	if !CanWrite(sub, namespace, key) {
		return ErrMediaDenied
	}
	return a.inner.Delete(ctx, namespace, key)
}
