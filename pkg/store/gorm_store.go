package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"postboard/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &PostModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser inserts a new user and returns it with the assigned ID.
func (s *GormStore) SaveUser(u domain.User) (domain.User, error) {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SavePost inserts a post and returns it with the assigned ID.
func (s *GormStore) SavePost(p domain.Post) (domain.Post, error) {
	model := postToModel(p)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Post{}, err
	}
	return postFromModel(model), nil
}

// ListPostsByOwner returns the owner's posts ordered by id.
func (s *GormStore) ListPostsByOwner(ownerID uint) ([]domain.Post, error) {
	var models []PostModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Post, 0, len(models))
	for _, m := range models {
		res = append(res, postFromModel(m))
	}
	return res, nil
}

// DeletePostOwnedBy deletes the post when owned by ownerID.
func (s *GormStore) DeletePostOwnedBy(ownerID, postID uint) (bool, error) {
	tx := s.db.Where("id = ? AND owner_id = ?", postID, ownerID).Delete(&PostModel{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func postToModel(p domain.Post) PostModel {
	return PostModel{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Text:      p.Text,
		CreatedAt: p.CreatedAt,
	}
}

func postFromModel(m PostModel) domain.Post {
	return domain.Post{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
