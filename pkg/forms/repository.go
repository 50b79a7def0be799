package forms

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("form not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Owner{}, &Form{})
}

// FindByEndpoint loads a form by its public endpoint identifier together with
// the owner's email. The row is read fresh on every call.
func (r *Repository) FindByEndpoint(ctx context.Context, endpointID string) (*Form, error) {
	endpointID = strings.TrimSpace(endpointID)
	if endpointID == "" {
		return nil, ErrNotFound
	}

	var form Form
	result := r.db.WithContext(ctx).
		Model(&Form{}).
		Select("forms.*, users.email AS owner_email").
		Joins("LEFT JOIN users ON users.id = forms.user_id").
		Where("forms.endpoint_id = ?", endpointID).
		Take(&form)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &form, nil
}
