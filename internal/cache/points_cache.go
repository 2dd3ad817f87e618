package cache

import (
	"context"
	"fmt"
	"time"

	"course_cache_engine/internal/model"
	"course_cache_engine/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionSource 读取一个学生在课程中的全部提交
type SubmissionSource interface {
	ListSubmissions(ctx context.Context, courseID, studentID uint) ([]model.Submission, error)
}

// PointsCache 学生成绩缓存，建立在 ContentCache 之上
type PointsCache struct {
	content *ContentCache
	source  SubmissionSource
	keys    Keys
	gen     *generation
}

func NewPointsCache(store Store, content *ContentCache, source SubmissionSource, opts ...Option) *PointsCache {
	o := buildOptions(opts)
	return &PointsCache{
		content: content,
		source:  source,
		keys:    o.keys,
		gen:     newGeneration("points", store, o),
	}
}

// Get 返回学生当前的成绩树。
// 已存储的成绩若基于旧的内容代号，或已到公开反馈的时间，会被重新生成。
func (c *PointsCache) Get(ctx context.Context, courseID, studentID uint) (*PointsTree, error) {
	tree, err := c.content.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	now := c.gen.now()
	return getOrBuild(ctx, c.gen,
		c.keys.PointsGeneration(courseID, studentID),
		func(token int64) string { return c.keys.PointsData(courseID, studentID, token) },
		func(p *PointsTree, first bool) bool {
			if p.ContentGeneration != tree.GenerationID {
				return false
			}
			if p.InvalidateAt != nil && !now.Before(*p.InvalidateAt) {
				return false
			}
			return !(first && p.Dirty && c.gen.regenerateDirty.Load())
		},
		func(ctx context.Context, created time.Time) (*PointsTree, error) {
			return c.build(ctx, tree, studentID, created)
		},
	)
}

func (c *PointsCache) build(ctx context.Context, tree *Tree, studentID uint, created time.Time) (*PointsTree, error) {
	subs, err := c.source.ListSubmissions(ctx, tree.CourseID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions of student %d: %w", studentID, err)
	}
	points := Aggregate(tree, studentID, subs, c.gen.now())
	points.GenerationID = uuid.NewString()
	points.Created = created
	if points.Dirty {
		monitoring.DirtyGenerations.WithLabelValues(c.gen.name).Inc()
		c.gen.log.Warn("points generated from inconsistent data",
			zap.Uint("course_id", tree.CourseID),
			zap.Uint("student_id", studentID),
		)
	}
	c.gen.log.Debug("points generated",
		zap.Uint("course_id", tree.CourseID),
		zap.Uint("student_id", studentID),
		zap.String("generation", points.GenerationID),
		zap.String("content_generation", tree.GenerationID),
	)
	return points, nil
}

func (c *PointsCache) Invalidate(ctx context.Context, courseID, studentID uint) error {
	return c.gen.invalidate(ctx, c.keys.PointsGeneration(courseID, studentID), func(token int64) string {
		return c.keys.PointsData(courseID, studentID, token)
	})
}

func (c *PointsCache) SetPolicy(regenerateDirty bool, maxAttempts int) {
	c.gen.setPolicy(regenerateDirty, maxAttempts)
}
