package submission

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

// Create inserts the record in a single statement and stamps its creation time.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	rec.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
}
