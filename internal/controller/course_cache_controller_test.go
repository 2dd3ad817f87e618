package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/model"
	"course_cache_engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type oneCourse struct{}

func (oneCourse) LoadContent(_ context.Context, courseID uint) (*model.CourseContent, error) {
	if courseID != 1 {
		return nil, gorm.ErrRecordNotFound
	}
	c := &model.CourseContent{}
	c.Instance.ID = 1
	c.Instance.CourseURL, c.Instance.InstanceURL = "prog", "2026"

	cat := model.Category{Name: "Exercises", Status: model.CategoryStatusReady}
	cat.ID = 1
	m := model.Module{Order: 1, Status: model.ModuleStatusReady, Name: "Week 1", URL: "w1"}
	m.ID = 10
	o := model.LearningObject{
		ModuleID: 10, CategoryID: 1, Order: 1, Status: model.ObjectStatusReady,
		Audience: model.AudienceAll, Name: "Hello", URL: "hello", Submittable: true, MaxPoints: 10,
	}
	o.ID = 100
	c.Categories = []model.Category{cat}
	c.Modules = []model.Module{m}
	c.LearningObjects = []model.LearningObject{o}
	return c, nil
}

type noSubmissions struct{}

func (noSubmissions) ListSubmissions(context.Context, uint, uint) ([]model.Submission, error) {
	return nil, nil
}

type noThresholds struct{}

func (noThresholds) FindByID(context.Context, uint) (*model.Threshold, error) {
	return nil, gorm.ErrRecordNotFound
}

func (noThresholds) ListByCourse(context.Context, uint) ([]model.Threshold, error) {
	return nil, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore()
	content := cache.NewContentCache(store, oneCourse{})
	points := cache.NewPointsCache(store, content, noSubmissions{})
	c := NewCourseCacheController(service.NewCourseCacheService(content, points, noThresholds{}, nil))

	r := gin.New()
	g := r.Group("/api/courses/:courseId")
	g.GET("/tree", c.GetTree)
	g.GET("/find", c.Find)
	g.GET("/students/:studentId/points", c.GetPoints)
	g.GET("/students/:studentId/thresholds/:thresholdId", c.IsPassed)
	return r
}

func TestCourseCacheControllerStatus(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"tree", "/api/courses/1/tree", http.StatusOK},
		{"unknown course", "/api/courses/2/tree", http.StatusNotFound},
		{"bad course id", "/api/courses/abc/tree", http.StatusBadRequest},
		{"zero course id", "/api/courses/0/tree", http.StatusBadRequest},
		{"points", "/api/courses/1/students/7/points", http.StatusOK},
		{"find exercise", "/api/courses/1/find?type=exercise&id=100", http.StatusOK},
		{"find missing", "/api/courses/1/find?id=999", http.StatusNotFound},
		{"find bad type", "/api/courses/1/find?type=chapter&id=100", http.StatusBadRequest},
		{"find by path", "/api/courses/1/find?module=10&path=hello", http.StatusOK},
		{"unknown threshold", "/api/courses/1/students/7/thresholds/3", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestFindResponse(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses/1/find?id=100", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data FindResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Node)
	assert.Equal(t, uint(100), body.Data.Node.ID)
	assert.Equal(t, "1.1", body.Data.Node.Number)
	assert.Equal(t, []int{0, 0}, body.Data.Path)
	require.Len(t, body.Data.Ancestors, 1)
	assert.Equal(t, uint(10), body.Data.Ancestors[0].ID)
	require.NotNil(t, body.Data.Previous)
	assert.Equal(t, uint(10), body.Data.Previous.ID)
	assert.Nil(t, body.Data.Next)
}
