package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"course_cache_engine/internal/model"
)

type objectKey struct {
	moduleID uint
	parentID uint
}

type builder struct {
	tree       *Tree
	categories map[uint]*model.Category
	children   map[objectKey][]*model.LearningObject
	placed     map[uint]bool
	module     *model.Module
	moduleNode *Node
}

// BuildTree 把一个课程实例的模块、学习对象和分类展开为有序的内容树及索引。
// 生成代号和时间戳由调用方填写。
func BuildTree(content *model.CourseContent) *Tree {
	b := &builder{
		tree: &Tree{
			CourseID:      content.Instance.ID,
			CourseURL:     content.Instance.CourseURL,
			InstanceURL:   content.Instance.InstanceURL,
			Modules:       []*Node{},
			ModuleIndex:   make(map[uint][]int),
			ExerciseIndex: make(map[uint][]int),
			Paths:         make(map[uint]map[string]uint),
			Categories:    make(map[uint]*CategoryRollup),
			Total:         newRollup(),
		},
		categories: make(map[uint]*model.Category),
		children:   make(map[objectKey][]*model.LearningObject),
		placed:     make(map[uint]bool),
	}
	b.tree.Total.MinGroupSize = 100000
	b.tree.Total.MaxGroupSize = 1

	for i := range content.Categories {
		c := &content.Categories[i]
		b.categories[c.ID] = c
		b.tree.Categories[c.ID] = &CategoryRollup{
			ID:                      c.ID,
			Name:                    c.Name,
			Status:                  c.Status,
			PointsToPass:            c.PointsToPass,
			ConfirmTheLevel:         c.ConfirmTheLevel,
			AcceptUnofficialSubmits: c.AcceptUnofficialSubmits,
			NoTotal:                 c.Status == model.CategoryStatusNoTotal,
			Rollup:                  newRollup(),
		}
	}
	for i := range content.LearningObjects {
		o := &content.LearningObjects[i]
		var parent uint
		if o.ParentID != nil {
			parent = *o.ParentID
		}
		k := objectKey{moduleID: o.ModuleID, parentID: parent}
		b.children[k] = append(b.children[k], o)
	}
	for k := range b.children {
		objs := b.children[k]
		sort.SliceStable(objs, func(i, j int) bool {
			if objs[i].Order != objs[j].Order {
				return objs[i].Order < objs[j].Order
			}
			return objs[i].ID < objs[j].ID
		})
	}

	modules := make([]*model.Module, len(content.Modules))
	for i := range content.Modules {
		modules[i] = &content.Modules[i]
	}
	sort.SliceStable(modules, func(i, j int) bool {
		a, c := modules[i], modules[j]
		if !a.ClosingTime.Equal(c.ClosingTime) {
			return a.ClosingTime.Before(c.ClosingTime)
		}
		if a.Order != c.Order {
			return a.Order < c.Order
		}
		return a.ID < c.ID
	})

	for i, m := range modules {
		b.addModule(i, m)
	}

	// 未被挂到树上的对象：父对象或模块已不存在（与删除并发）
	for i := range content.LearningObjects {
		if !b.placed[content.LearningObjects[i].ID] {
			b.tree.Dirty = true
			break
		}
	}
	if b.tree.Total.MinGroupSize > b.tree.Total.MaxGroupSize {
		b.tree.Total.MinGroupSize = 1
	}
	return b.tree
}

func (b *builder) addModule(i int, m *model.Module) {
	node := &Node{
		Type:     NodeModule,
		ID:       m.ID,
		Order:    m.Order,
		Status:   m.Status,
		Name:     m.Name,
		Number:   strconv.Itoa(m.Order),
		Link:     b.link(m.URL, ""),
		Children: []*Node{},
		Module: &ModuleFields{
			URL:          m.URL,
			OpeningTime:  m.OpeningTime,
			ClosingTime:  m.ClosingTime,
			LateAllowed:  m.LateSubmissionsAllowed,
			LatePenalty:  m.LateSubmissionPenalty,
			PointsToPass: m.PointsToPass,
			Rollup:       newRollup(),
		},
	}
	if m.LateSubmissionsAllowed && m.LateSubmissionDeadline != nil {
		t := *m.LateSubmissionDeadline
		node.Module.LateTime = &t
	}
	for _, r := range m.Requirements {
		node.Module.Requirements = append(node.Module.Requirements, r.ThresholdID)
	}

	b.tree.Modules = append(b.tree.Modules, node)
	b.tree.ModuleIndex[m.ID] = []int{i}
	b.tree.Paths[m.ID] = make(map[string]uint)

	b.module, b.moduleNode = m, node
	b.descend(node, 0, []int{i}, "")
	node.Module.IsEmpty = len(node.Children) == 0
}

func (b *builder) descend(parent *Node, parentID uint, path []int, prefix string) {
	hidden, unlisted := parent.hidesChildren()
	for i, o := range b.children[objectKey{moduleID: b.module.ID, parentID: parentID}] {
		childPath := append(append([]int(nil), path...), i)
		relPath := prefix + o.URL

		node := b.objectNode(parent, o, relPath)
		node.AncestorHidden = hidden
		node.AncestorUnlisted = unlisted
		if node.Object.CategoryStatus == model.CategoryStatusHidden {
			node.AncestorHidden = true
		}

		b.placed[o.ID] = true
		b.tree.ExerciseIndex[o.ID] = childPath
		b.tree.Paths[b.module.ID][relPath] = o.ID
		parent.Children = append(parent.Children, node)

		if node.Type == NodeExercise {
			if node.Object.ConfirmTheLevel {
				node.Unconfirmed = true
				parent.Unconfirmed = true
			} else if node.IsListed() {
				b.accumulate(node.Object)
			}
		}

		b.descend(node, o.ID, childPath, relPath+"/")
	}
}

func (b *builder) objectNode(parent *Node, o *model.LearningObject, relPath string) *Node {
	m := b.module
	node := &Node{
		Type:     NodeChapter,
		ID:       o.ID,
		Order:    o.Order,
		Status:   o.Status,
		Name:     o.Name,
		Number:   parent.Number + "." + strconv.Itoa(o.Order),
		Link:     b.link(m.URL, relPath),
		Children: []*Node{},
		Object: &ObjectFields{
			ModuleID:              m.ID,
			ModuleStatus:          m.Status,
			URL:                   o.URL,
			Path:                  relPath,
			CategoryID:            o.CategoryID,
			Audience:              o.Audience,
			OpeningTime:           m.OpeningTime,
			ClosingTime:           m.ClosingTime,
			LateTime:              b.moduleNode.Module.LateTime,
			Submittable:           o.Submittable,
			MaxPoints:             o.MaxPoints,
			PointsToPass:          o.PointsToPass,
			Difficulty:            o.Difficulty,
			MinGroupSize:          o.MinGroupSize,
			MaxGroupSize:          o.MaxGroupSize,
			MaxSubmissions:        o.MaxSubmissions,
			AllowAssistantViewing: o.AllowAssistantViewing,
			GradingMode:           o.GradingMode,
			RevealRule:            o.RevealRule,
			FeedbackRevealed:      o.FeedbackRevealed,
		},
	}
	if o.ParentID != nil {
		node.Object.ParentID = *o.ParentID
	}
	if o.Submittable {
		node.Type = NodeExercise
	}
	if node.Object.GradingMode == "" {
		node.Object.GradingMode = model.GradingModeBest
	}
	if node.Object.RevealRule == "" {
		node.Object.RevealRule = model.RevealImmediate
	}

	if c, ok := b.categories[o.CategoryID]; ok {
		node.Object.Category = c.Name
		node.Object.CategoryStatus = c.Status
		node.Object.ConfirmTheLevel = c.ConfirmTheLevel && o.Submittable
	} else {
		b.tree.Dirty = true
	}
	return node
}

func (b *builder) accumulate(o *ObjectFields) {
	if c, ok := b.tree.Categories[o.CategoryID]; ok {
		c.add(o)
	}
	b.moduleNode.Module.Rollup.add(o)
	total := &b.tree.Total
	total.add(o)
	if o.MaxGroupSize > 1 {
		if o.MinGroupSize < total.MinGroupSize {
			total.MinGroupSize = o.MinGroupSize
		}
		if o.MaxGroupSize > total.MaxGroupSize {
			total.MaxGroupSize = o.MaxGroupSize
		}
	}
}

func (b *builder) link(moduleURL, relPath string) string {
	parts := []string{b.tree.CourseURL, b.tree.InstanceURL, moduleURL}
	if relPath != "" {
		parts = append(parts, relPath)
	}
	return fmt.Sprintf("/%s/", strings.Join(parts, "/"))
}
