package store

import "postboard/pkg/domain"

// Store defines persistence operations for users and posts. The store is the
// authoritative record; the post cache is derived state on top of it.
type Store interface {
	// users
	SaveUser(domain.User) (domain.User, error)
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)

	// posts
	SavePost(domain.Post) (domain.Post, error)
	ListPostsByOwner(ownerID uint) ([]domain.Post, error)
	// DeletePostOwnedBy removes the post only when it belongs to ownerID and
	// reports whether anything was deleted.
	DeletePostOwnedBy(ownerID, postID uint) (bool, error)
}
