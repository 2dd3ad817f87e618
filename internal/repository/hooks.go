package repository

import "context"

// InvalidationHooks 在写入提交后被同步调用，使依赖这些数据的缓存失效
type InvalidationHooks interface {
	OnCourseEntityChanged(ctx context.Context, courseID uint) error
	OnSubmissionChanged(ctx context.Context, studentID, courseID uint) error
}

type noopHooks struct{}

func (noopHooks) OnCourseEntityChanged(context.Context, uint) error     { return nil }
func (noopHooks) OnSubmissionChanged(context.Context, uint, uint) error { return nil }
