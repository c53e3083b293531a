package booths

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	ListBooths(ctx context.Context) ([]Booth, error)
	GetBoothByID(ctx context.Context, id uuid.UUID) (*Booth, error)
	CreateBooth(ctx context.Context, booth *Booth) error
	UpdateBoothStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListBooths(ctx context.Context) ([]Booth, error) {
	var booths []Booth
	if err := r.db.WithContext(ctx).Order("event_id, number").Find(&booths).Error; err != nil {
		return nil, err
	}
	return booths, nil
}

func (r *repository) GetBoothByID(ctx context.Context, id uuid.UUID) (*Booth, error) {
	var booth Booth
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booth, nil
}

func (r *repository) CreateBooth(ctx context.Context, booth *Booth) error {
	return r.db.WithContext(ctx).Create(booth).Error
}

func (r *repository) UpdateBoothStatus(ctx context.Context, id uuid.UUID, status Status) error {
	result := r.db.WithContext(ctx).Model(&Booth{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
