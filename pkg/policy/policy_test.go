package policy

import (
	"testing"

	"snapfeed/pkg/domain"
)

var (
	alice = domain.Subject{ID: "alice"}
	bob   = domain.Subject{ID: "bob"}
	anon  = domain.Subject{}
)

func TestPolicyMatrix(t *testing.T) {
	profile := domain.Profile{ID: "alice", Username: "alice"}
	post := domain.Post{ID: "p1", OwnerID: "alice"}
	story := domain.Story{ID: "s1", OwnerID: "alice"}
	like := domain.Like{ID: "l1", UserID: "alice", PostID: "p1"}
	comment := domain.Comment{ID: "c1", UserID: "alice", PostID: "p1"}
	follow := domain.Follow{ID: "f1", FollowerID: "alice", FollowingID: "bob"}
	save := domain.Save{ID: "sv1", UserID: "alice", PostID: "p1"}
	message := domain.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob"}

	cases := []struct {
		name string
		sub  domain.Subject
		op   Op
		row  any
		want bool
	}{
		{"profile read anon", anon, OpRead, profile, true},
		{"profile create self", alice, OpCreate, profile, true},
		{"profile create other", bob, OpCreate, profile, false},
		{"profile create anon", anon, OpCreate, profile, false},
		{"profile update self", alice, OpUpdate, profile, true},
		{"profile update other", bob, OpUpdate, profile, false},
		{"profile delete not exposed", alice, OpDelete, profile, false},

		{"post read anon", anon, OpRead, post, true},
		{"post create owner", alice, OpCreate, post, true},
		{"post create anon", anon, OpCreate, post, false},
		{"post update owner", alice, OpUpdate, post, true},
		{"post update other", bob, OpUpdate, post, false},
		{"post delete owner", alice, OpDelete, post, true},
		{"post delete other", bob, OpDelete, post, false},

		{"story read anon", anon, OpRead, story, true},
		{"story create owner", alice, OpCreate, story, true},
		{"story update not exposed", alice, OpUpdate, story, false},
		{"story delete owner", alice, OpDelete, story, true},
		{"story delete other", bob, OpDelete, story, false},

		{"like read anon", anon, OpRead, like, true},
		{"like create owner", alice, OpCreate, like, true},
		{"like create other", bob, OpCreate, like, false},
		{"like update not exposed", alice, OpUpdate, like, false},
		{"like delete owner", alice, OpDelete, like, true},
		{"like delete other", bob, OpDelete, like, false},

		{"comment read anon", anon, OpRead, comment, true},
		{"comment create owner", alice, OpCreate, comment, true},
		{"comment update owner", alice, OpUpdate, comment, true},
		{"comment update other", bob, OpUpdate, comment, false},
		{"comment delete owner", alice, OpDelete, comment, true},

		{"follow read anon", anon, OpRead, follow, true},
		{"follow create follower", alice, OpCreate, follow, true},
		{"follow create other", bob, OpCreate, follow, false},
		{"follow update not exposed", alice, OpUpdate, follow, false},
		{"follow delete follower", alice, OpDelete, follow, true},
		{"follow delete followee", bob, OpDelete, follow, false},

		{"save read owner", alice, OpRead, save, true},
		{"save read other", bob, OpRead, save, false},
		{"save read anon", anon, OpRead, save, false},
		{"save create owner", alice, OpCreate, save, true},
		{"save delete owner", alice, OpDelete, save, true},
		{"save delete other", bob, OpDelete, save, false},

		{"message read sender", alice, OpRead, message, true},
		{"message read receiver", bob, OpRead, message, true},
		{"message read outsider", domain.Subject{ID: "carol"}, OpRead, message, false},
		{"message read anon", anon, OpRead, message, false},
		{"message create sender", alice, OpCreate, message, true},
		{"message create receiver", bob, OpCreate, message, false},
		{"message update not exposed", alice, OpUpdate, message, false},
		{"message delete not exposed", alice, OpDelete, message, false},
	}

	for _, tc := range cases {
		if got := Allowed(tc.sub, tc.op, tc.row); got != tc.want {
			t.Errorf("%s: Allowed = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAllowedRejectsUnknownRowType(t *testing.T) {
	if Allowed(alice, OpRead, struct{}{}) {
		t.Fatalf("unknown row type must be denied")
	}
}

func TestSelfFollowPermitted(t *testing.T) {
	// Nothing in the contract forbids follower == following; only the
	// follower identity is checked.
	row := domain.Follow{ID: "f1", FollowerID: "alice", FollowingID: "alice"}
	if !Allowed(alice, OpCreate, row) {
		t.Fatalf("self-follow create should pass the follower check")
	}
}
