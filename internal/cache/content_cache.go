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

// ContentSource 读取一门课程的完整结构（模块、学习对象、分类）
type ContentSource interface {
	LoadContent(ctx context.Context, courseID uint) (*model.CourseContent, error)
}

// ContentCache 课程内容树缓存
type ContentCache struct {
	source ContentSource
	keys   Keys
	gen    *generation
}

func NewContentCache(store Store, source ContentSource, opts ...Option) *ContentCache {
	o := buildOptions(opts)
	return &ContentCache{
		source: source,
		keys:   o.keys,
		gen:    newGeneration("content", store, o),
	}
}

// Get 返回课程当前的内容树。返回值在调用方之间共享，不得修改。
func (c *ContentCache) Get(ctx context.Context, courseID uint) (*Tree, error) {
	return getOrBuild(ctx, c.gen,
		c.keys.ContentGeneration(courseID),
		func(token int64) string { return c.keys.ContentData(courseID, token) },
		func(t *Tree, first bool) bool {
			return !(first && t.Dirty && c.gen.regenerateDirty.Load())
		},
		func(ctx context.Context, created time.Time) (*Tree, error) {
			return c.build(ctx, courseID, created)
		},
	)
}

func (c *ContentCache) build(ctx context.Context, courseID uint, created time.Time) (*Tree, error) {
	content, err := c.source.LoadContent(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	tree := BuildTree(content)
	tree.GenerationID = uuid.NewString()
	tree.Created = created
	if tree.Dirty {
		monitoring.DirtyGenerations.WithLabelValues(c.gen.name).Inc()
		c.gen.log.Warn("course content is inconsistent, generation marked dirty",
			zap.Uint("course_id", courseID),
		)
	}
	c.gen.log.Debug("content generated",
		zap.Uint("course_id", courseID),
		zap.String("generation", tree.GenerationID),
		zap.Int("modules", len(tree.Modules)),
	)
	return tree, nil
}

// Invalidate 使课程内容缓存失效，依赖它的积分缓存随之失效
func (c *ContentCache) Invalidate(ctx context.Context, courseID uint) error {
	return c.gen.invalidate(ctx, c.keys.ContentGeneration(courseID), func(token int64) string {
		return c.keys.ContentData(courseID, token)
	})
}

// SetPolicy 运行时调整重建策略
func (c *ContentCache) SetPolicy(regenerateDirty bool, maxAttempts int) {
	c.gen.setPolicy(regenerateDirty, maxAttempts)
}
