package controller

import (
	"errors"
	"net/http"

	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/service"
	"course_cache_engine/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseCacheController struct {
	Service *service.CourseCacheService
}

func NewCourseCacheController(s *service.CourseCacheService) *CourseCacheController {
	return &CourseCacheController{Service: s}
}

// NodeSummary 不带子节点的节点信息
type NodeSummary struct {
	Type   cache.NodeType `json:"type"`
	ID     uint           `json:"id"`
	Name   string         `json:"name"`
	Number string         `json:"number"`
	Link   string         `json:"link"`
	Status string         `json:"status"`
	Listed bool           `json:"listed"`
}

func summarize(n *cache.Node) *NodeSummary {
	if n == nil {
		return nil
	}
	return &NodeSummary{
		Type:   n.Type,
		ID:     n.ID,
		Name:   n.Name,
		Number: n.Number,
		Link:   n.Link,
		Status: n.Status,
		Listed: n.IsListed(),
	}
}

type FindResponse struct {
	Node      *NodeSummary   `json:"node"`
	Path      []int          `json:"path"`
	Ancestors []*NodeSummary `json:"ancestors"`
	Previous  *NodeSummary   `json:"previous,omitempty"`
	Next      *NodeSummary   `json:"next,omitempty"`
}

// @Summary 课程内容树
// @Tags 缓存
// @Produce json
// @Param courseId path int true "课程实例ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/tree [get]
func (c *CourseCacheController) GetTree(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}
	tree, err := c.Service.GetTree(ctx.Request.Context(), courseID)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	util.Success(ctx, tree)
}

// @Summary 学生成绩树
// @Tags 缓存
// @Produce json
// @Param courseId path int true "课程实例ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/students/{studentId}/points [get]
func (c *CourseCacheController) GetPoints(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "studentId")
	if !ok {
		return
	}
	points, err := c.Service.GetPoints(ctx.Request.Context(), courseID, studentID)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	util.Success(ctx, points)
}

// @Summary 查找节点及前后节点
// @Tags 缓存
// @Produce json
// @Param courseId path int true "课程实例ID"
// @Param type query string false "module 或 exercise"
// @Param id query int false "节点ID"
// @Param module query int false "按路径查找时的模块ID"
// @Param path query string false "模块内相对路径"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/find [get]
func (c *CourseCacheController) Find(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}

	var ref cache.NodeRef
	if relPath := ctx.Query("path"); relPath != "" {
		moduleID, err := util.ParseID(ctx.Query("module"))
		if err != nil {
			util.BadRequest(ctx, "invalid module id")
			return
		}
		id, err := c.Service.FindByPath(ctx.Request.Context(), courseID, moduleID, relPath)
		if err != nil {
			c.fail(ctx, err)
			return
		}
		ref = cache.ExerciseRef(id)
	} else {
		id, err := util.ParseID(ctx.Query("id"))
		if err != nil {
			util.BadRequest(ctx, "invalid node id")
			return
		}
		ref = cache.NodeRef{Type: cache.NodeType(ctx.DefaultQuery("type", string(cache.NodeExercise))), ID: id}
	}

	found, err := c.Service.Find(ctx.Request.Context(), courseID, ref)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	resp := FindResponse{
		Node:      summarize(found.Node),
		Path:      found.Path,
		Ancestors: make([]*NodeSummary, 0, len(found.Ancestors)),
		Previous:  summarize(found.Previous),
		Next:      summarize(found.Next),
	}
	for _, a := range found.Ancestors {
		resp.Ancestors = append(resp.Ancestors, summarize(a))
	}
	util.Success(ctx, resp)
}

// @Summary 阈值判断
// @Tags 缓存
// @Produce json
// @Param courseId path int true "课程实例ID"
// @Param studentId path int true "学生ID"
// @Param thresholdId path int true "阈值ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/students/{studentId}/thresholds/{thresholdId} [get]
func (c *CourseCacheController) IsPassed(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "courseId")
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "studentId")
	if !ok {
		return
	}
	thresholdID, ok := pathID(ctx, "thresholdId")
	if !ok {
		return
	}

	passed, err := c.Service.IsPassed(ctx.Request.Context(), courseID, studentID, thresholdID, false)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	withUnconfirmed, err := c.Service.IsPassed(ctx.Request.Context(), courseID, studentID, thresholdID, true)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"thresholdId":       thresholdID,
		"passed":            passed,
		"passedUnconfirmed": withUnconfirmed,
	})
}

func (c *CourseCacheController) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrThresholdNotFound),
		errors.Is(err, cache.ErrNoSuchContent):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrInvalidNodeType):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseID(ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}
