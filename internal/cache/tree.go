package cache

import (
	"time"

	"course_cache_engine/internal/model"
)

type NodeType string

const (
	NodeModule   NodeType = "module"
	NodeExercise NodeType = "exercise" // 可提交的学习对象
	NodeChapter  NodeType = "chapter"
)

// Node 内容树节点。Type 决定 Module / Object 中哪一个非空。
// 父节点独占子节点，不保存反向指针；祖先通过索引路径还原。
type Node struct {
	Type   NodeType `json:"type"`
	ID     uint     `json:"id"`
	Order  int      `json:"order"`
	Status string   `json:"status"`
	Name   string   `json:"name"`
	Number string   `json:"number"`
	Link   string   `json:"link"`

	// 祖先（模块、父对象或分类）隐藏或未列出时置位
	AncestorHidden   bool `json:"ancestorHidden,omitempty"`
	AncestorUnlisted bool `json:"ancestorUnlisted,omitempty"`
	// 确认层级：练习本身是确认练习，或该节点下存在确认练习
	Unconfirmed bool `json:"unconfirmed,omitempty"`

	Module   *ModuleFields `json:"module,omitempty"`
	Object   *ObjectFields `json:"object,omitempty"`
	Children []*Node       `json:"children"`
}

type ModuleFields struct {
	URL          string     `json:"url"`
	OpeningTime  time.Time  `json:"openingTime"`
	ClosingTime  time.Time  `json:"closingTime"`
	LateAllowed  bool       `json:"lateAllowed"`
	LateTime     *time.Time `json:"lateTime,omitempty"`
	LatePenalty  float64    `json:"latePenalty"`
	PointsToPass int        `json:"pointsToPass"`
	Requirements []uint     `json:"requirements,omitempty"`
	IsEmpty      bool       `json:"isEmpty"`
	Rollup       Rollup     `json:"rollup"`
}

type ObjectFields struct {
	ModuleID       uint   `json:"moduleId"`
	ModuleStatus   string `json:"moduleStatus"`
	ParentID       uint   `json:"parentId,omitempty"`
	URL            string `json:"url"`
	Path           string `json:"path"`
	CategoryID     uint   `json:"categoryId"`
	Category       string `json:"category"`
	CategoryStatus string `json:"categoryStatus"`
	Audience       string `json:"audience"`

	OpeningTime time.Time  `json:"openingTime"`
	ClosingTime time.Time  `json:"closingTime"`
	LateTime    *time.Time `json:"lateTime,omitempty"`

	Submittable           bool   `json:"submittable"`
	ConfirmTheLevel       bool   `json:"confirmTheLevel,omitempty"`
	MaxPoints             int    `json:"maxPoints"`
	PointsToPass          int    `json:"pointsToPass"`
	Difficulty            string `json:"difficulty"`
	MinGroupSize          int    `json:"minGroupSize"`
	MaxGroupSize          int    `json:"maxGroupSize"`
	MaxSubmissions        int    `json:"maxSubmissions"`
	AllowAssistantViewing bool   `json:"allowAssistantViewing"`
	GradingMode           string `json:"gradingMode"`
	RevealRule            string `json:"revealRule"`
	FeedbackRevealed      bool   `json:"feedbackRevealed"`
}

// Rollup 练习数与满分的累计
type Rollup struct {
	ExerciseCount         int            `json:"exerciseCount"`
	MaxPoints             int            `json:"maxPoints"`
	MaxPointsByDifficulty map[string]int `json:"maxPointsByDifficulty"`
	MinGroupSize          int            `json:"minGroupSize,omitempty"`
	MaxGroupSize          int            `json:"maxGroupSize,omitempty"`
}

func newRollup() Rollup {
	return Rollup{MaxPointsByDifficulty: make(map[string]int)}
}

func (r *Rollup) add(o *ObjectFields) {
	r.ExerciseCount++
	r.MaxPoints += o.MaxPoints
	r.MaxPointsByDifficulty[o.Difficulty] += o.MaxPoints
}

type CategoryRollup struct {
	ID                      uint   `json:"id"`
	Name                    string `json:"name"`
	Status                  string `json:"status"`
	PointsToPass            int    `json:"pointsToPass"`
	ConfirmTheLevel         bool   `json:"confirmTheLevel"`
	AcceptUnofficialSubmits bool   `json:"acceptUnofficialSubmits"`
	NoTotal                 bool   `json:"noTotal"`
	Rollup
}

// Tree 一个课程实例的内容缓存
type Tree struct {
	GenerationID string    `json:"generationId"`
	Created      time.Time `json:"created"`
	Dirty        bool      `json:"dirty"`
	CourseID     uint      `json:"courseId"`
	CourseURL    string    `json:"courseUrl"`
	InstanceURL  string    `json:"instanceUrl"`

	Modules       []*Node                  `json:"modules"`
	ModuleIndex   map[uint][]int           `json:"moduleIndex"`
	ExerciseIndex map[uint][]int           `json:"exerciseIndex"`
	Paths         map[uint]map[string]uint `json:"paths"`
	Categories    map[uint]*CategoryRollup `json:"categories"`
	Total         Rollup                   `json:"total"`
}

// IsVisible 自身及祖先都不是隐藏或维护状态
func (n *Node) IsVisible() bool {
	if n.AncestorHidden {
		return false
	}
	switch n.Type {
	case NodeModule:
		return n.Status != model.ModuleStatusHidden && n.Status != model.ModuleStatusMaintenance
	case NodeExercise, NodeChapter:
		return n.Status != model.ObjectStatusHidden && n.Status != model.ObjectStatusMaintenance
	}
	return false
}

// IsListed 可见，且任何层级都不是未列出；练习还排除报名类状态
func (n *Node) IsListed() bool {
	if !n.IsVisible() || n.AncestorUnlisted {
		return false
	}
	switch n.Type {
	case NodeModule:
		return n.Status != model.ModuleStatusUnlisted
	case NodeExercise, NodeChapter:
		switch n.Status {
		case model.ObjectStatusUnlisted, model.ObjectStatusEnrollment,
			model.ObjectStatusEnrollmentExt, model.ObjectStatusMaintenance:
			return false
		}
		return true
	}
	return false
}

// InMaintenance 节点或所属模块处于维护中
func (n *Node) InMaintenance() bool {
	switch n.Type {
	case NodeModule:
		return n.Status == model.ModuleStatusMaintenance
	case NodeExercise, NodeChapter:
		return n.Status == model.ObjectStatusMaintenance || n.Object.ModuleStatus == model.ModuleStatusMaintenance
	}
	return false
}

// hidesChildren 节点状态对子节点的影响
func (n *Node) hidesChildren() (hidden, unlisted bool) {
	hidden = n.AncestorHidden || !n.IsVisible()
	unlisted = n.AncestorUnlisted
	switch n.Type {
	case NodeModule:
		unlisted = unlisted || n.Status == model.ModuleStatusUnlisted
	case NodeExercise, NodeChapter:
		unlisted = unlisted || n.Status == model.ObjectStatusUnlisted
	}
	return hidden, unlisted
}

func nodeChildren(n *Node) []*Node {
	return n.Children
}
