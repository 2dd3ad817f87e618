package repository

import (
	"context"
	"errors"
	"fmt"

	"course_cache_engine/internal/model"

	"gorm.io/gorm"
)

// ContentRepository 课程结构（模块、学习对象、分类）的读写
type ContentRepository struct {
	DB    *gorm.DB
	hooks InvalidationHooks
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db, hooks: noopHooks{}}
}

func (r *ContentRepository) SetHooks(h InvalidationHooks) {
	r.hooks = h
}

// LoadContent 读取课程实例的完整结构
func (r *ContentRepository) LoadContent(ctx context.Context, courseID uint) (*model.CourseContent, error) {
	db := r.DB.WithContext(ctx)
	content := &model.CourseContent{}
	if err := db.First(&content.Instance, courseID).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Requirements").
		Where("course_instance_id = ?", courseID).
		Find(&content.Modules).Error; err != nil {
		return nil, err
	}
	if err := db.Joins("JOIN course_modules ON course_modules.id = learning_objects.module_id").
		Where("course_modules.course_instance_id = ? AND course_modules.deleted_at IS NULL", courseID).
		Find(&content.LearningObjects).Error; err != nil {
		return nil, err
	}
	if err := db.Where("course_instance_id = ?", courseID).
		Find(&content.Categories).Error; err != nil {
		return nil, err
	}
	return content, nil
}

// SaveModule 创建或更新模块；模块移到其他课程实例时新旧课程都失效
func (r *ContentRepository) SaveModule(ctx context.Context, m *model.Module) error {
	var prev uint
	if m.ID != 0 {
		courseID, err := r.courseOfModule(ctx, m.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		prev = courseID
	}
	if err := r.DB.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	return r.invalidate(ctx, prev, m.CourseInstanceID)
}

// DeleteModule 删除模块及其下的学习对象
func (r *ContentRepository) DeleteModule(ctx context.Context, id uint) error {
	var m model.Module
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return err
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id = ?", id).Delete(&model.LearningObject{}).Error; err != nil {
			return err
		}
		if err := tx.Where("module_id = ?", id).Delete(&model.ModuleRequirement{}).Error; err != nil {
			return err
		}
		return tx.Delete(&m).Error
	})
	if err != nil {
		return err
	}
	return r.invalidate(ctx, m.CourseInstanceID)
}

func (r *ContentRepository) SaveLearningObject(ctx context.Context, o *model.LearningObject) error {
	courseID, err := r.courseOfModule(ctx, o.ModuleID)
	if err != nil {
		return err
	}
	var prev uint
	if o.ID != 0 {
		prev, err = r.CourseOfExercise(ctx, o.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if err := r.DB.WithContext(ctx).Save(o).Error; err != nil {
		return err
	}
	return r.invalidate(ctx, prev, courseID)
}

// DeleteLearningObject 删除学习对象；子对象保留，内容树会把它们标记为未挂载
func (r *ContentRepository) DeleteLearningObject(ctx context.Context, id uint) error {
	var o model.LearningObject
	if err := r.DB.WithContext(ctx).First(&o, id).Error; err != nil {
		return err
	}
	courseID, err := r.courseOfModule(ctx, o.ModuleID)
	if err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Delete(&o).Error; err != nil {
		return err
	}
	return r.invalidate(ctx, courseID)
}

func (r *ContentRepository) SaveCategory(ctx context.Context, c *model.Category) error {
	var prev model.Category
	if c.ID != 0 {
		err := r.DB.WithContext(ctx).Select("id", "course_instance_id").First(&prev, c.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if err := r.DB.WithContext(ctx).Save(c).Error; err != nil {
		return err
	}
	return r.invalidate(ctx, prev.CourseInstanceID, c.CourseInstanceID)
}

func (r *ContentRepository) DeleteCategory(ctx context.Context, id uint) error {
	var c model.Category
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Delete(&c).Error; err != nil {
		return err
	}
	return r.invalidate(ctx, c.CourseInstanceID)
}

// invalidate 依次通知去重后的课程，0 表示无
func (r *ContentRepository) invalidate(ctx context.Context, courseIDs ...uint) error {
	seen := make(map[uint]bool, len(courseIDs))
	for _, id := range courseIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		if err := r.hooks.OnCourseEntityChanged(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CourseOfExercise 学习对象所属的课程实例
func (r *ContentRepository) CourseOfExercise(ctx context.Context, exerciseID uint) (uint, error) {
	var o model.LearningObject
	if err := r.DB.WithContext(ctx).Select("id", "module_id").First(&o, exerciseID).Error; err != nil {
		return 0, err
	}
	return r.courseOfModule(ctx, o.ModuleID)
}

func (r *ContentRepository) courseOfModule(ctx context.Context, moduleID uint) (uint, error) {
	var m model.Module
	if err := r.DB.WithContext(ctx).Select("id", "course_instance_id").First(&m, moduleID).Error; err != nil {
		return 0, fmt.Errorf("module %d: %w", moduleID, err)
	}
	return m.CourseInstanceID, nil
}
