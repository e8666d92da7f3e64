package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"postboard/pkg/auth"
	"postboard/pkg/cache"
	"postboard/pkg/domain"
	"postboard/pkg/store"
	"postboard/pkg/token"
)

// MaxPostBytes bounds post text at 1 MiB, measured in bytes of the UTF-8
// payload.
const MaxPostBytes = 1 << 20

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	TokenSecret   string
	TokenTTL      time.Duration
	CacheTTL      time.Duration

	// InvalidateOnWrite drops the owner's cached list on AddPost/DeletePost.
	// Off by default: listings may then stay stale for up to the cache TTL
	// after a mutation.
	InvalidateOnWrite bool

	// Store and Cache override the defaults built from the fields above.
	Store store.Store
	Cache cache.PostCache
}

// App is the core application service wiring storage, cache, and tokens.
type App struct {
	store             store.Store
	cache             cache.PostCache
	tokens            *token.Service
	invalidateOnWrite bool
	listGroup         singleflight.Group
}

// New constructs the application. With no injected Store it opens Postgres
// via GORM; with no injected Cache it uses Redis when configured and an
// in-process cache otherwise.
func New(cfg Config) (*App, error) {
	tokens, err := token.New(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	postCache := cfg.Cache
	if postCache == nil {
		if cfg.RedisAddr != "" {
			postCache = cache.NewRedisPostCache(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
		} else {
			postCache = cache.NewMemoryPostCache(cfg.CacheTTL)
		}
	}

	return &App{
		store:             dataStore,
		cache:             postCache,
		tokens:            tokens,
		invalidateOnWrite: cfg.InvalidateOnWrite,
	}, nil
}

// SignUp registers a new user. Emails are unique and case-sensitive.
func (a *App) SignUp(email, password string) error {
	if email == "" || password == "" {
		return ErrEmailAndPasswordRequired
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = a.store.SaveUser(domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Login validates credentials and issues a bearer token with the user's
// email as subject.
func (a *App) Login(email, password string) (string, error) {
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	accessToken, err := a.tokens.Issue(user.Email, 0)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return accessToken, nil
}

// IdentityFromToken validates a bearer token and returns the subject email.
func (a *App) IdentityFromToken(tokenString string) (string, bool) {
	subject, err := a.tokens.Validate(tokenString)
	if err != nil {
		return "", false
	}
	return subject, true
}

// AddPost persists a post for the identity and returns its assigned ID.
func (a *App) AddPost(identity, text string) (uint, error) {
	if text == "" {
		return 0, ErrTextRequired
	}
	if len(text) > MaxPostBytes {
		return 0, ErrPostTooLarge
	}
	user, err := a.userForIdentity(identity)
	if err != nil {
		return 0, err
	}
	post, err := a.store.SavePost(domain.Post{
		OwnerID:   user.ID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("save post: %w", err)
	}
	a.maybeInvalidate(identity)
	return post.ID, nil
}

// ListPosts returns the identity's posts, consulting the cache first. Cache
// failures degrade to a store read; cache-write failures are logged and
// swallowed. Concurrent misses for the same owner collapse into one store
// query.
func (a *App) ListPosts(identity string) ([]domain.Post, error) {
	user, err := a.userForIdentity(identity)
	if err != nil {
		return nil, err
	}

	posts, hit, err := a.cache.Get(identity)
	if err != nil {
		slog.Warn("post cache read failed", "err", err)
	} else if hit {
		return posts, nil
	}

	res, err, _ := a.listGroup.Do(identity, func() (any, error) {
		posts, err := a.store.ListPostsByOwner(user.ID)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		if err := a.cache.Set(identity, posts); err != nil {
			slog.Warn("post cache write failed", "err", err)
		}
		return posts, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Post), nil
}

// DeletePost removes the identity's post. Posts owned by someone else are
// indistinguishable from absent ones.
func (a *App) DeletePost(identity string, postID uint) error {
	user, err := a.userForIdentity(identity)
	if err != nil {
		return err
	}
	deleted, err := a.store.DeletePostOwnedBy(user.ID, postID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !deleted {
		return ErrPostNotFound
	}
	a.maybeInvalidate(identity)
	return nil
}

func (a *App) userForIdentity(identity string) (domain.User, error) {
	user, ok, err := a.store.GetUserByEmail(identity)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUnknownIdentity
	}
	return user, nil
}

func (a *App) maybeInvalidate(identity string) {
	if !a.invalidateOnWrite {
		return
	}
	if err := a.cache.Invalidate(identity); err != nil {
		slog.Warn("post cache invalidation failed", "err", err)
	}
}
