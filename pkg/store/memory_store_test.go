package store

import (
	"errors"
	"testing"

	"postboard/pkg/domain"
)

func TestMemoryStoreUserLifecycle(t *testing.T) {
	s := NewMemoryStore()

	u, err := s.SaveUser(domain.User{Email: "a@x.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("save user: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("expected assigned user id")
	}

	if _, err := s.SaveUser(domain.User{Email: "a@x.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected duplicate email to fail, got: %v", err)
	}

	exists, err := s.HasUserEmail("a@x.com")
	if err != nil || !exists {
		t.Fatalf("expected email to exist, exists=%v err=%v", exists, err)
	}
	// Emails are case-sensitive.
	exists, err = s.HasUserEmail("A@X.COM")
	if err != nil || exists {
		t.Fatalf("expected different-cased email to be absent, exists=%v err=%v", exists, err)
	}

	got, ok, err := s.GetUserByEmail("a@x.com")
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestMemoryStorePostsOrderedAndOwnerScoped(t *testing.T) {
	s := NewMemoryStore()

	first, err := s.SavePost(domain.Post{OwnerID: 1, Text: "first"})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := s.SavePost(domain.Post{OwnerID: 1, Text: "second"})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if _, err := s.SavePost(domain.Post{OwnerID: 2, Text: "other"}); err != nil {
		t.Fatalf("save other: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	posts, err := s.ListPostsByOwner(1)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 2 || posts[0].Text != "first" || posts[1].Text != "second" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestMemoryStoreDeleteEnforcesOwnership(t *testing.T) {
	s := NewMemoryStore()

	p, err := s.SavePost(domain.Post{OwnerID: 1, Text: "mine"})
	if err != nil {
		t.Fatalf("save post: %v", err)
	}

	deleted, err := s.DeletePostOwnedBy(2, p.ID)
	if err != nil {
		t.Fatalf("delete as other owner: %v", err)
	}
	if deleted {
		t.Fatalf("expected other owner's delete to be a no-op")
	}

	deleted, err = s.DeletePostOwnedBy(1, p.ID)
	if err != nil || !deleted {
		t.Fatalf("expected owner delete to succeed, deleted=%v err=%v", deleted, err)
	}

	deleted, err = s.DeletePostOwnedBy(1, p.ID)
	if err != nil || deleted {
		t.Fatalf("expected second delete to be a no-op, deleted=%v err=%v", deleted, err)
	}
}
