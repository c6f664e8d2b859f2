package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"shop_back_end/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := conn(ctx, r.db).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := conn(ctx, r.db).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create insère l'utilisateur; une collision qui a échappé aux vérifications préalables
// est traduite selon la contrainte violée.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := conn(ctx, r.db).Create(u).Error
	if err == nil {
		return nil
	}

	switch uniqueViolation(err) {
	case constraintUsersUsername:
		return ErrDuplicateUsername
	case constraintUsersEmail:
		return ErrDuplicateEmail
	}
	return fmt.Errorf("insert user: %w", err)
}
