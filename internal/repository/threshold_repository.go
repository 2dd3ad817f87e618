package repository

import (
	"context"

	"course_cache_engine/internal/model"

	"gorm.io/gorm"
)

type ThresholdRepository struct {
	DB *gorm.DB
}

func NewThresholdRepository(db *gorm.DB) *ThresholdRepository {
	return &ThresholdRepository{DB: db}
}

func (r *ThresholdRepository) FindByID(ctx context.Context, id uint) (*model.Threshold, error) {
	var t model.Threshold
	err := r.DB.WithContext(ctx).Preload("Requirements").Preload("Points").First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByCourse 课程实例的全部阈值
func (r *ThresholdRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Threshold, error) {
	var list []model.Threshold
	err := r.DB.WithContext(ctx).
		Preload("Requirements").
		Preload("Points").
		Where("course_instance_id = ?", courseID).
		Order("id").
		Find(&list).Error
	return list, err
}

func (r *ThresholdRepository) Save(ctx context.Context, t *model.Threshold) error {
	return r.DB.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(t).Error
}
