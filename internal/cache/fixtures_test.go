package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"course_cache_engine/internal/model"
)

var errNotInFake = errors.New("course not in fake source")

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func uintPtr(v uint) *uint { return &v }

func module(id uint, order int, url string, closing time.Time, pointsToPass int) model.Module {
	m := model.Module{
		CourseInstanceID: 1,
		Order:            order,
		Status:           model.ModuleStatusReady,
		Name:             url,
		URL:              url,
		OpeningTime:      closing.Add(-30 * 24 * time.Hour),
		ClosingTime:      closing,
		PointsToPass:     pointsToPass,
	}
	m.ID = id
	return m
}

func object(id, moduleID uint, parent *uint, order int, url string, category uint) model.LearningObject {
	o := model.LearningObject{
		ModuleID:    moduleID,
		ParentID:    parent,
		CategoryID:  category,
		Order:       order,
		Status:      model.ObjectStatusReady,
		Audience:    model.AudienceAll,
		Name:        url,
		URL:         url,
		GradingMode: model.GradingModeBest,
		RevealRule:  model.RevealImmediate,
	}
	o.ID = id
	return o
}

func exercise(id, moduleID uint, parent *uint, order int, url string, category uint, maxPoints, pointsToPass int) model.LearningObject {
	o := object(id, moduleID, parent, order, url, category)
	o.Submittable = true
	o.MaxPoints = maxPoints
	o.PointsToPass = pointsToPass
	o.MinGroupSize = 1
	o.MaxGroupSize = 1
	return o
}

func category(id uint, name string, confirm bool) model.Category {
	c := model.Category{
		CourseInstanceID: 1,
		Name:             name,
		Status:           model.CategoryStatusReady,
		ConfirmTheLevel:  confirm,
	}
	c.ID = id
	return c
}

// sampleContent 两个模块：
//
//	m1 (10)            [0]
//	  intro (100)      [0 0]
//	    ex1 (101)      [0 0 0]
//	    ex2 (102)      [0 0 1]
//	m2 (20)            [1]
//	  ex3 (200)        [1 0]
//	  secret (201)     [1 1]  hidden
func sampleContent() *model.CourseContent {
	c := &model.CourseContent{
		Instance: model.CourseInstance{CourseURL: "prog", InstanceURL: "2026", Name: "Programming"},
	}
	c.Instance.ID = 1
	c.Categories = []model.Category{category(1, "Exercises", false)}
	c.Modules = []model.Module{
		// 故意乱序，由构建按截止时间排序
		module(20, 2, "m2", epoch.Add(14*24*time.Hour), 0),
		module(10, 1, "m1", epoch.Add(7*24*time.Hour), 10),
	}
	secret := exercise(201, 20, nil, 2, "secret", 1, 30, 0)
	secret.Status = model.ObjectStatusHidden
	ex3 := exercise(200, 20, nil, 1, "ex3", 1, 50, 0)
	ex3.Difficulty = "A"
	c.LearningObjects = []model.LearningObject{
		exercise(102, 10, uintPtr(100), 2, "ex2", 1, 100, 10),
		object(100, 10, nil, 1, "intro", 1),
		exercise(101, 10, uintPtr(100), 1, "ex1", 1, 100, 0),
		ex3,
		secret,
	}
	return c
}

func submission(id, exerciseID uint, grade int, status string, at time.Time) model.Submission {
	s := model.Submission{
		ExerciseID:     exerciseID,
		Grade:          grade,
		Status:         status,
		SubmissionTime: at,
		Submitters:     []model.SubmissionMember{{StudentID: 7}},
	}
	s.ID = id
	return s
}

// fakeContent 内存中的 ContentSource；onLoad 在返回前执行，用于模拟生成期间的写入
type fakeContent struct {
	mu      sync.Mutex
	content map[uint]*model.CourseContent
	loads   atomic.Int32
	onLoad  func()
}

func newFakeContent(c *model.CourseContent) *fakeContent {
	return &fakeContent{content: map[uint]*model.CourseContent{c.Instance.ID: c}}
}

func (f *fakeContent) LoadContent(_ context.Context, courseID uint) (*model.CourseContent, error) {
	f.loads.Add(1)
	f.mu.Lock()
	c, ok := f.content[courseID]
	hook := f.onLoad
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, errNotInFake
	}
	copied := *c
	copied.Modules = append([]model.Module(nil), c.Modules...)
	copied.LearningObjects = append([]model.LearningObject(nil), c.LearningObjects...)
	copied.Categories = append([]model.Category(nil), c.Categories...)
	return &copied, nil
}

func (f *fakeContent) update(fn func(c *model.CourseContent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.content {
		fn(c)
	}
}

type fakeSubmissions struct {
	mu    sync.Mutex
	subs  []model.Submission
	loads atomic.Int32
}

func (f *fakeSubmissions) ListSubmissions(_ context.Context, _, studentID uint) ([]model.Submission, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Submission
	for _, s := range f.subs {
		for _, m := range s.Submitters {
			if m.StudentID == studentID {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSubmissions) add(s model.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, s)
}

// fakeClock 手动推进的时钟，默认不走动
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func buildSample(t *testing.T) *Tree {
	t.Helper()
	tree := BuildTree(sampleContent())
	tree.GenerationID = "test"
	return tree
}
