package cache

import (
	"time"

	"postboard/pkg/domain"
)

// DefaultTTL is the post-list cache lifetime.
const DefaultTTL = 300 * time.Second

// PostCache holds a per-owner snapshot of the post list. Entries are written
// only on a list-read miss and expire after the TTL; an expired entry is a
// miss. The cache is never authoritative.
type PostCache interface {
	Get(ownerKey string) ([]domain.Post, bool, error)
	Set(ownerKey string, posts []domain.Post) error
	Invalidate(ownerKey string) error
}
