package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyflow/pennyflow/internal/model"
)

// ResolveUser returns the user for the identity provider's subject id,
// creating the row on first sight. The identity provider has already
// authenticated the subject; this only maps it onto a local user id.
func (s *Store) ResolveUser(ctx context.Context, subject, email, name string) (*model.User, error) {
	if subject == "" {
		return nil, ErrNotFound
	}

	var user model.User
	err := s.db.WithContext(ctx).Where("auth_subject = ?", subject).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ledger: ResolveUser: %w", err)
	}

	user = model.User{
		ID:          uuid.New(),
		AuthSubject: subject,
		Email:       email,
		Name:        name,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("ledger: ResolveUser: creating user: %w", err)
	}
	return &user, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: GetUser: %w", err)
	}
	return &user, nil
}

// ListUsers returns every user. The report generator walks this monthly.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("ledger: ListUsers: %w", err)
	}
	return users, nil
}
