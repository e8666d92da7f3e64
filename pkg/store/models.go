package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type PostModel struct {
	ID        uint      `gorm:"primaryKey"`
	OwnerID   uint      `gorm:"not null;index"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }
func (PostModel) TableName() string { return "posts" }
