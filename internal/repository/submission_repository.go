package repository

import (
	"context"
	"errors"

	"course_cache_engine/internal/model"

	"gorm.io/gorm"
)

// SubmissionRepository 提交记录的读写
type SubmissionRepository struct {
	DB      *gorm.DB
	content *ContentRepository
	hooks   InvalidationHooks
}

func NewSubmissionRepository(db *gorm.DB, content *ContentRepository) *SubmissionRepository {
	return &SubmissionRepository{DB: db, content: content, hooks: noopHooks{}}
}

func (r *SubmissionRepository) SetHooks(h InvalidationHooks) {
	r.hooks = h
}

// ListSubmissions 学生在课程中参与的全部提交（含小组提交）
func (r *SubmissionRepository) ListSubmissions(ctx context.Context, courseID, studentID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.WithContext(ctx).
		Joins("JOIN submission_members ON submission_members.submission_id = submissions.id").
		Joins("JOIN learning_objects ON learning_objects.id = submissions.exercise_id").
		Joins("JOIN course_modules ON course_modules.id = learning_objects.module_id").
		Where("submission_members.student_id = ? AND course_modules.course_instance_id = ?", studentID, courseID).
		Order("submissions.submission_time, submissions.id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// Save 创建或更新提交及其提交者，然后使受影响学生的成绩缓存失效。
// 被移出小组的学生和提交原来所属的课程同样会收到通知。
func (r *SubmissionRepository) Save(ctx context.Context, s *model.Submission) error {
	courseID, err := r.content.CourseOfExercise(ctx, s.ExerciseID)
	if err != nil {
		return err
	}

	var (
		prev       model.Submission
		prevCourse uint
	)
	if s.ID != 0 {
		err := r.DB.WithContext(ctx).Preload("Submitters").First(&prev, s.ID).Error
		switch {
		case err == nil:
			prevCourse, err = r.content.CourseOfExercise(ctx, prev.ExerciseID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Submitters").Save(s).Error; err != nil {
			return err
		}
		if err := tx.Where("submission_id = ?", s.ID).Delete(&model.SubmissionMember{}).Error; err != nil {
			return err
		}
		for i := range s.Submitters {
			s.Submitters[i].ID = 0
			s.Submitters[i].SubmissionID = s.ID
		}
		if len(s.Submitters) == 0 {
			return nil
		}
		return tx.Create(&s.Submitters).Error
	})
	if err != nil {
		return err
	}
	return r.notify(ctx, []uint{prevCourse, courseID}, prev.Submitters, s.Submitters)
}

func (r *SubmissionRepository) Delete(ctx context.Context, id uint) error {
	var s model.Submission
	if err := r.DB.WithContext(ctx).Preload("Submitters").First(&s, id).Error; err != nil {
		return err
	}
	courseID, err := r.content.CourseOfExercise(ctx, s.ExerciseID)
	if err != nil {
		return err
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", id).Delete(&model.SubmissionMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	if err != nil {
		return err
	}
	return r.notify(ctx, []uint{courseID}, s.Submitters)
}

// notify 对每个课程通知所有成员（去重），课程 id 为 0 时跳过
func (r *SubmissionRepository) notify(ctx context.Context, courseIDs []uint, groups ...[]model.SubmissionMember) error {
	var students []uint
	seen := make(map[uint]bool)
	for _, members := range groups {
		for _, m := range members {
			if !seen[m.StudentID] {
				seen[m.StudentID] = true
				students = append(students, m.StudentID)
			}
		}
	}

	done := make(map[uint]bool, len(courseIDs))
	for _, courseID := range courseIDs {
		if courseID == 0 || done[courseID] {
			continue
		}
		done[courseID] = true
		for _, studentID := range students {
			if err := r.hooks.OnSubmissionChanged(ctx, studentID, courseID); err != nil {
				return err
			}
		}
	}
	return nil
}
