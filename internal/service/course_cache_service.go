package service

import (
	"context"
	"errors"
	"fmt"

	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/config"
	"course_cache_engine/internal/model"
	"course_cache_engine/internal/threshold"
	"course_cache_engine/internal/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ThresholdSource 读取持久化的阈值
type ThresholdSource interface {
	FindByID(ctx context.Context, id uint) (*model.Threshold, error)
	ListByCourse(ctx context.Context, courseID uint) ([]model.Threshold, error)
}

// CourseCacheService 内容缓存、成绩缓存和阈值判断对外的入口。
// 同时实现 repository.InvalidationHooks，由写路径在提交后调用。
type CourseCacheService struct {
	Content    *cache.ContentCache
	Points     *cache.PointsCache
	Thresholds ThresholdSource
	log        *zap.Logger
}

func NewCourseCacheService(content *cache.ContentCache, points *cache.PointsCache, thresholds ThresholdSource, log *zap.Logger) *CourseCacheService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseCacheService{
		Content:    content,
		Points:     points,
		Thresholds: thresholds,
		log:        log,
	}
}

func (s *CourseCacheService) GetTree(ctx context.Context, courseID uint) (*cache.Tree, error) {
	tree, err := s.Content.Get(ctx, courseID)
	if err != nil {
		return nil, courseError(err)
	}
	return tree, nil
}

func (s *CourseCacheService) GetPoints(ctx context.Context, courseID, studentID uint) (*cache.PointsTree, error) {
	points, err := s.Points.Get(ctx, courseID, studentID)
	if err != nil {
		return nil, courseError(err)
	}
	return points, nil
}

// Find 节点及其祖先、前后相邻的已列出节点
func (s *CourseCacheService) Find(ctx context.Context, courseID uint, ref cache.NodeRef) (*cache.Found, error) {
	if ref.Type != cache.NodeModule && ref.Type != cache.NodeExercise {
		return nil, util.ErrInvalidNodeType
	}
	tree, err := s.GetTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return tree.Find(ref)
}

// FindByPath 模块内相对路径对应的学习对象 id
func (s *CourseCacheService) FindByPath(ctx context.Context, courseID, moduleID uint, relPath string) (uint, error) {
	tree, err := s.GetTree(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return tree.FindByPath(moduleID, relPath)
}

func (s *CourseCacheService) Modules(ctx context.Context, courseID uint) ([]*cache.Node, error) {
	tree, err := s.GetTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return tree.Modules, nil
}

func (s *CourseCacheService) Categories(ctx context.Context, courseID uint) ([]*cache.CategoryRollup, error) {
	tree, err := s.GetTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return tree.CategoryList(), nil
}

func (s *CourseCacheService) Exercises(ctx context.Context, courseID uint) ([]*cache.Node, error) {
	tree, err := s.GetTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return tree.Exercises(), nil
}

// IsPassed 学生是否满足课程中的某个阈值
func (s *CourseCacheService) IsPassed(ctx context.Context, courseID, studentID, thresholdID uint, unconfirmed bool) (bool, error) {
	t, err := s.threshold(ctx, courseID, thresholdID)
	if err != nil {
		return false, err
	}
	points, err := s.GetPoints(ctx, courseID, studentID)
	if err != nil {
		return false, err
	}
	return threshold.IsPassed(points, threshold.FromModel(t), unconfirmed)
}

// ModuleRequirementsPassed 模块的成绩已通过，且模块要求的阈值全部满足
func (s *CourseCacheService) ModuleRequirementsPassed(ctx context.Context, courseID, studentID, moduleID uint) (bool, error) {
	points, err := s.GetPoints(ctx, courseID, studentID)
	if err != nil {
		return false, err
	}
	m, err := points.Module(moduleID)
	if err != nil {
		return false, err
	}
	if !m.Totals.Passed {
		return false, nil
	}
	for _, id := range m.Node.Module.Requirements {
		t, err := s.threshold(ctx, courseID, id)
		if err != nil {
			return false, err
		}
		ok, err := threshold.IsPassed(points, threshold.FromModel(t), false)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (s *CourseCacheService) threshold(ctx context.Context, courseID, id uint) (*model.Threshold, error) {
	t, err := s.Thresholds.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && t.CourseInstanceID != courseID) {
		return nil, util.ErrThresholdNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// OnCourseEntityChanged 模块、学习对象或分类写入后调用
func (s *CourseCacheService) OnCourseEntityChanged(ctx context.Context, courseID uint) error {
	if err := s.Content.Invalidate(ctx, courseID); err != nil {
		s.log.Error("failed to invalidate course content", zap.Uint("course_id", courseID), zap.Error(err))
		return fmt.Errorf("invalidate course %d: %w", courseID, err)
	}
	s.log.Debug("course content invalidated", zap.Uint("course_id", courseID))
	return nil
}

// OnSubmissionChanged 提交写入后调用
func (s *CourseCacheService) OnSubmissionChanged(ctx context.Context, studentID, courseID uint) error {
	if err := s.Points.Invalidate(ctx, courseID, studentID); err != nil {
		s.log.Error("failed to invalidate points",
			zap.Uint("course_id", courseID),
			zap.Uint("student_id", studentID),
			zap.Error(err),
		)
		return fmt.Errorf("invalidate points of student %d: %w", studentID, err)
	}
	s.log.Debug("points invalidated", zap.Uint("course_id", courseID), zap.Uint("student_id", studentID))
	return nil
}

// UpdateOptions 配置热更新时调整重建策略
func (s *CourseCacheService) UpdateOptions(cfg config.CacheConfig) {
	s.Content.SetPolicy(cfg.RegenerateDirty, cfg.MaxBuildAttempts)
	s.Points.SetPolicy(cfg.RegenerateDirty, cfg.MaxBuildAttempts)
	s.log.Info("cache policy updated",
		zap.Bool("regenerate_dirty", cfg.RegenerateDirty),
		zap.Int("max_build_attempts", cfg.MaxBuildAttempts),
	)
}

func courseError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrCourseNotFound
	}
	return err
}
