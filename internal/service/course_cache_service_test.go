package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/config"
	"course_cache_engine/internal/model"
	"course_cache_engine/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubContent struct {
	mu      sync.Mutex
	content *model.CourseContent
}

func (s *stubContent) LoadContent(_ context.Context, courseID uint) (*model.CourseContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if courseID != s.content.Instance.ID {
		return nil, gorm.ErrRecordNotFound
	}
	c := *s.content
	c.LearningObjects = append([]model.LearningObject(nil), s.content.LearningObjects...)
	return &c, nil
}

type stubSubmissions struct {
	mu   sync.Mutex
	subs []model.Submission
}

func (s *stubSubmissions) ListSubmissions(_ context.Context, _, studentID uint) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Submission
	for _, sub := range s.subs {
		if len(sub.Submitters) > 0 && sub.Submitters[0].StudentID == studentID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *stubSubmissions) add(id, exerciseID uint, grade int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := model.Submission{
		ExerciseID:     exerciseID,
		Grade:          grade,
		Status:         model.SubmissionStatusReady,
		SubmissionTime: time.Date(2026, 3, 1, 0, 0, int(id), 0, time.UTC),
		Submitters:     []model.SubmissionMember{{StudentID: 7}},
	}
	sub.ID = id
	s.subs = append(s.subs, sub)
}

type stubThresholds map[uint]*model.Threshold

func (s stubThresholds) FindByID(_ context.Context, id uint) (*model.Threshold, error) {
	if t, ok := s[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s stubThresholds) ListByCourse(_ context.Context, courseID uint) ([]model.Threshold, error) {
	var out []model.Threshold
	for _, t := range s {
		if t.CourseInstanceID == courseID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func testContent() *model.CourseContent {
	c := &model.CourseContent{}
	c.Instance.ID = 1

	cat := model.Category{CourseInstanceID: 1, Name: "Exercises", Status: model.CategoryStatusReady}
	cat.ID = 1
	c.Categories = []model.Category{cat}

	m := model.Module{
		CourseInstanceID: 1,
		Order:            1,
		Status:           model.ModuleStatusReady,
		Name:             "Week 1",
		URL:              "w1",
		ClosingTime:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Requirements:     []model.ModuleRequirement{{ModuleID: 10, ThresholdID: 5}},
	}
	m.ID = 10
	c.Modules = []model.Module{m}

	for i, d := range []string{"A", "B"} {
		o := model.LearningObject{
			ModuleID:    10,
			CategoryID:  1,
			Order:       i + 1,
			Status:      model.ObjectStatusReady,
			Audience:    model.AudienceAll,
			Name:        "ex" + d,
			URL:         "ex" + d,
			Submittable: true,
			MaxPoints:   100,
			Difficulty:  d,
		}
		o.ID = uint(101 + i)
		c.LearningObjects = append(c.LearningObjects, o)
	}
	return c
}

func testThresholds() stubThresholds {
	t5 := &model.Threshold{
		CourseInstanceID:    1,
		Name:                "pass",
		ConsumeHarderPoints: true,
		Points: []model.ThresholdPoints{
			{ID: 1, Difficulty: "B", Limit: 60, Order: 1},
			{ID: 2, Difficulty: "A", Limit: 50, Order: 2},
		},
	}
	t5.ID = 5
	t6 := &model.Threshold{CourseInstanceID: 2, Name: "elsewhere"}
	t6.ID = 6
	return stubThresholds{5: t5, 6: t6}
}

func newTestService(t *testing.T) (*CourseCacheService, *stubContent, *stubSubmissions) {
	t.Helper()
	content := &stubContent{content: testContent()}
	subs := &stubSubmissions{}
	store := cache.NewMemoryStore()
	cc := cache.NewContentCache(store, content)
	pc := cache.NewPointsCache(store, cc, subs)
	return NewCourseCacheService(cc, pc, testThresholds(), nil), content, subs
}

func TestGetTreeUnknownCourse(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.GetTree(context.Background(), 99)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	_, err = s.GetPoints(context.Background(), 99, 7)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestFind(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	found, err := s.Find(ctx, 1, cache.ExerciseRef(102))
	require.NoError(t, err)
	assert.Equal(t, uint(102), found.Node.ID)
	require.NotNil(t, found.Previous)
	assert.Equal(t, uint(101), found.Previous.ID)

	_, err = s.Find(ctx, 1, cache.NodeRef{Type: cache.NodeChapter, ID: 101})
	assert.ErrorIs(t, err, util.ErrInvalidNodeType)

	_, err = s.Find(ctx, 1, cache.ExerciseRef(999))
	assert.ErrorIs(t, err, cache.ErrNoSuchContent)

	id, err := s.FindByPath(ctx, 1, 10, "exB")
	require.NoError(t, err)
	assert.Equal(t, uint(102), id)

	exercises, err := s.Exercises(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, exercises, 2)

	modules, err := s.Modules(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, modules, 1)

	categories, err := s.Categories(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestIsPassed(t *testing.T) {
	s, _, subs := newTestService(t)
	ctx := context.Background()

	subs.add(1, 101, 80)
	subs.add(2, 102, 40)
	require.NoError(t, s.OnSubmissionChanged(ctx, 7, 1))

	passed, err := s.IsPassed(ctx, 1, 7, 5, false)
	require.NoError(t, err)
	assert.True(t, passed, "the surplus of A covers the deficit of B")

	_, err = s.IsPassed(ctx, 1, 7, 6, false)
	assert.ErrorIs(t, err, util.ErrThresholdNotFound)
	_, err = s.IsPassed(ctx, 1, 7, 404, false)
	assert.ErrorIs(t, err, util.ErrThresholdNotFound)

	ok, err := s.ModuleRequirementsPassed(ctx, 1, 7, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidationHooks(t *testing.T) {
	s, content, subs := newTestService(t)
	ctx := context.Background()

	subs.add(1, 101, 30)
	passed, err := s.IsPassed(ctx, 1, 7, 5, false)
	require.NoError(t, err)
	assert.False(t, passed)

	subs.add(2, 101, 90)
	subs.add(3, 102, 60)
	require.NoError(t, s.OnSubmissionChanged(ctx, 7, 1))
	points, err := s.GetPoints(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 150, points.Total.Points)

	content.mu.Lock()
	content.content.LearningObjects[1].Status = model.ObjectStatusHidden
	content.mu.Unlock()
	require.NoError(t, s.OnCourseEntityChanged(ctx, 1))

	points, err = s.GetPoints(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 90, points.Total.Points)
	passed, err = s.IsPassed(ctx, 1, 7, 5, false)
	require.NoError(t, err)
	assert.False(t, passed, "B points are gone with the hidden exercise")
}

func TestUpdateOptions(t *testing.T) {
	s, _, _ := newTestService(t)
	assert.NotPanics(t, func() {
		s.UpdateOptions(config.CacheConfig{RegenerateDirty: true, MaxBuildAttempts: 5})
	})
	_, err := s.GetTree(context.Background(), 1)
	require.NoError(t, err)
}
