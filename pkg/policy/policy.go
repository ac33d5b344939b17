// Package policy decides, per entity type and operation, whether a caller
// identity may perform a read, create, update, or delete. It is a pure
// function of the subject and the row it is handed: create decisions are
// evaluated against the proposed row before anything is written, all other
// decisions against the existing row.
package policy

import "snapfeed/pkg/domain"

// Op is a storage operation subject to authorization.
type Op string

const (
	OpRead   Op = "read"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type predicate func(sub domain.Subject, row any) bool

// rules holds one predicate per operation. A nil predicate means the
// operation is not exposed for that entity at all.
type rules struct {
	read   predicate
	create predicate
	update predicate
	delete predicate
}

func allowAny(domain.Subject, any) bool { return true }

func profileSelf(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Profile).ID)
}

func postOwner(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Post).OwnerID)
}

func storyOwner(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Story).OwnerID)
}

func likeOwner(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Like).UserID)
}

func commentOwner(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Comment).UserID)
}

func followOwner(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Follow).FollowerID)
}

func saveOwner(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Save).UserID)
}

func messageSender(sub domain.Subject, row any) bool {
	return sub.Is(row.(domain.Message).SenderID)
}

func messageParticipant(sub domain.Subject, row any) bool {
	m := row.(domain.Message)
	return sub.Is(m.SenderID) || sub.Is(m.ReceiverID)
}

// table is the full authorization contract, one row per entity type.
var table = map[string]rules{
	"profile": {read: allowAny, create: profileSelf, update: profileSelf},
	"post":    {read: allowAny, create: postOwner, update: postOwner, delete: postOwner},
	"story":   {read: allowAny, create: storyOwner, delete: storyOwner},
	"like":    {read: allowAny, create: likeOwner, delete: likeOwner},
	"comment": {read: allowAny, create: commentOwner, update: commentOwner, delete: commentOwner},
	"follow":  {read: allowAny, create: followOwner, delete: followOwner},
	"save":    {read: saveOwner, create: saveOwner, delete: saveOwner},
	"message": {read: messageParticipant, create: messageSender},
}

func kindOf(row any) string {
	switch row.(type) {
	case domain.Profile:
		return "profile"
	case domain.Post:
		return "post"
	case domain.Story:
		return "story"
	case domain.Like:
		return "like"
	case domain.Comment:
		return "comment"
	case domain.Follow:
		return "follow"
	case domain.Save:
		return "save"
	case domain.Message:
		return "message"
	default:
		return ""
	}
}

// Allowed reports whether sub may perform op on row. Unknown row types and
// unexposed operations are denied.
func Allowed(sub domain.Subject, op Op, row any) bool {
	r, ok := table[kindOf(row)]
	if !ok {
		return false
	}
	var p predicate
	switch op {
	case OpRead:
		p = r.read
	case OpCreate:
		p = r.create
	case OpUpdate:
		p = r.update
	case OpDelete:
		p = r.delete
	}
	if p == nil {
		return false
	}
	return p(sub, row)
}
