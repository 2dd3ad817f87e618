package cache

import (
	"sort"
	"time"

	"course_cache_engine/internal/model"
)

type SubmissionSummary struct {
	ID             uint      `json:"id"`
	Grade          int       `json:"grade"`
	Status         string    `json:"status"`
	SubmissionTime time.Time `json:"submissionTime"`
}

// Entry 一个学生在一个练习上的成绩
type Entry struct {
	SubmissionCount    int                 `json:"submissionCount"`
	Submissions        []SubmissionSummary `json:"submissions"`
	BestSubmissionID   uint                `json:"bestSubmissionId,omitempty"`
	LastSubmissionTime *time.Time          `json:"lastSubmissionTime,omitempty"`
	Points             int                 `json:"points"`
	UnofficialPoints   int                 `json:"unofficialPoints,omitempty"`
	Passed             bool                `json:"passed"`
	Graded             bool                `json:"graded"`
	Unofficial         bool                `json:"unofficial"`
	// 所在层级的确认练习尚未通过，分数只计入 unconfirmed 桶
	Unconfirmed      bool `json:"unconfirmed"`
	FeedbackRevealed bool `json:"feedbackRevealed"`
}

type Totals struct {
	SubmissionCount               int            `json:"submissionCount"`
	Points                        int            `json:"points"`
	PointsByDifficulty            map[string]int `json:"pointsByDifficulty"`
	UnconfirmedPointsByDifficulty map[string]int `json:"unconfirmedPointsByDifficulty"`
	MaxPoints                     int            `json:"maxPoints"`
	MaxPointsByDifficulty         map[string]int `json:"maxPointsByDifficulty"`
	ExerciseCount                 int            `json:"exerciseCount"`
	PointsToPass                  int            `json:"pointsToPass"`
	Passed                        bool           `json:"passed"`
	MinGroupSize                  int            `json:"minGroupSize,omitempty"`
	MaxGroupSize                  int            `json:"maxGroupSize,omitempty"`
}

func newTotals(r Rollup, pointsToPass int) *Totals {
	maxByDifficulty := make(map[string]int, len(r.MaxPointsByDifficulty))
	for d, p := range r.MaxPointsByDifficulty {
		maxByDifficulty[d] = p
	}
	return &Totals{
		PointsByDifficulty:            make(map[string]int),
		UnconfirmedPointsByDifficulty: make(map[string]int),
		MaxPoints:                     r.MaxPoints,
		MaxPointsByDifficulty:         maxByDifficulty,
		ExerciseCount:                 r.ExerciseCount,
		PointsToPass:                  pointsToPass,
		MinGroupSize:                  r.MinGroupSize,
		MaxGroupSize:                  r.MaxGroupSize,
	}
}

// UnconfirmedPoints 未确认分数之和
func (t *Totals) UnconfirmedPoints() int {
	sum := 0
	for _, p := range t.UnconfirmedPointsByDifficulty {
		sum += p
	}
	return sum
}

// PointsNode 内容树节点的副本（不含子节点）加上学生成绩。
// 练习节点带 Entry，模块节点带 Totals。
type PointsNode struct {
	Node     Node          `json:"node"`
	Entry    *Entry        `json:"entry,omitempty"`
	Totals   *Totals       `json:"totals,omitempty"`
	Children []*PointsNode `json:"children"`
}

func pointsChildren(n *PointsNode) []*PointsNode {
	return n.Children
}

type CategoryPoints struct {
	Category CategoryRollup `json:"category"`
	Totals
}

// PointsTree 一个学生在一个课程实例中的成绩缓存
type PointsTree struct {
	GenerationID      string     `json:"generationId"`
	Created           time.Time  `json:"created"`
	ContentGeneration string     `json:"contentGeneration"`
	ContentCreated    time.Time  `json:"contentCreated"`
	CourseID          uint       `json:"courseId"`
	StudentID         uint       `json:"studentId"`
	Dirty             bool       `json:"dirty"`
	InvalidateAt      *time.Time `json:"invalidateAt,omitempty"`

	Modules       []*PointsNode            `json:"modules"`
	ModuleIndex   map[uint][]int           `json:"moduleIndex"`
	ExerciseIndex map[uint][]int           `json:"exerciseIndex"`
	Categories    map[uint]*CategoryPoints `json:"categories"`
	Total         Totals                   `json:"total"`
}

type aggregator struct {
	pt      *PointsTree
	now     time.Time
	grouped map[uint][]model.Submission
	failed  map[uint]bool
}

// Aggregate 根据内容树和学生的提交计算成绩树。
// 内容树中不存在的练习的提交被跳过，并把结果标记为 dirty。
func Aggregate(tree *Tree, studentID uint, submissions []model.Submission, now time.Time) *PointsTree {
	a := &aggregator{
		pt: &PointsTree{
			ContentGeneration: tree.GenerationID,
			ContentCreated:    tree.Created,
			CourseID:          tree.CourseID,
			StudentID:         studentID,
			Dirty:             tree.Dirty,
			Modules:           make([]*PointsNode, 0, len(tree.Modules)),
			ModuleIndex:       tree.ModuleIndex,
			ExerciseIndex:     tree.ExerciseIndex,
			Categories:        make(map[uint]*CategoryPoints, len(tree.Categories)),
			Total:             *newTotals(tree.Total, 0),
		},
		now:     now,
		grouped: make(map[uint][]model.Submission),
		failed:  make(map[uint]bool),
	}

	for _, s := range submissions {
		if s.Status == model.SubmissionStatusError || s.Status == model.SubmissionStatusRejected {
			continue
		}
		path, ok := tree.ExerciseIndex[s.ExerciseID]
		if !ok {
			a.pt.Dirty = true
			continue
		}
		if n, err := tree.NodeAt(path); err != nil || n.Type != NodeExercise {
			a.pt.Dirty = true
			continue
		}
		a.grouped[s.ExerciseID] = append(a.grouped[s.ExerciseID], s)
	}

	for id, c := range tree.Categories {
		a.pt.Categories[id] = &CategoryPoints{Category: *c, Totals: *newTotals(c.Rollup, c.PointsToPass)}
		a.pt.Categories[id].Category.MaxPointsByDifficulty = nil
	}

	for _, m := range tree.Modules {
		pm := a.copy(m)
		pm.Totals = newTotals(m.Module.Rollup, m.Module.PointsToPass)
		a.pt.Modules = append(a.pt.Modules, pm)
	}

	allPassed := true
	for _, pm := range a.pt.Modules {
		a.walk(pm, pm, false)
		t := pm.Totals
		t.Passed = t.Points >= t.PointsToPass && !a.failed[pm.Node.ID]
		if pm.Node.IsListed() && !t.Passed {
			allPassed = false
		}
	}
	for _, c := range a.pt.Categories {
		c.Passed = c.Points >= c.PointsToPass
	}
	a.pt.Total.Passed = allPassed
	return a.pt
}

// copy 复制节点并为练习计算 Entry
func (a *aggregator) copy(n *Node) *PointsNode {
	shallow := *n
	shallow.Children = nil
	p := &PointsNode{Node: shallow, Children: make([]*PointsNode, 0, len(n.Children))}
	if n.Type == NodeExercise {
		p.Entry = a.entry(n.Object, a.grouped[n.ID])
	}
	for _, c := range n.Children {
		p.Children = append(p.Children, a.copy(c))
	}
	return p
}

func (a *aggregator) entry(o *ObjectFields, subs []model.Submission) *Entry {
	e := &Entry{
		SubmissionCount:  len(subs),
		Submissions:      make([]SubmissionSummary, 0, len(subs)),
		FeedbackRevealed: true,
	}
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].SubmissionTime.Equal(subs[j].SubmissionTime) {
			return subs[i].SubmissionTime.Before(subs[j].SubmissionTime)
		}
		return subs[i].ID < subs[j].ID
	})

	// 分类接受非正式提交时，非正式提交与正式提交一起参与评选并计分
	acceptUnofficial := false
	if c, ok := a.pt.Categories[o.CategoryID]; ok {
		acceptUnofficial = c.Category.AcceptUnofficialSubmits
	}

	var ready, unofficial []*model.Submission
	for i := range subs {
		s := &subs[i]
		e.Submissions = append(e.Submissions, SubmissionSummary{
			ID:             s.ID,
			Grade:          s.Grade,
			Status:         s.Status,
			SubmissionTime: s.SubmissionTime,
		})
		switch s.Status {
		case model.SubmissionStatusReady:
			ready = append(ready, s)
		case model.SubmissionStatusUnofficial:
			if acceptUnofficial {
				ready = append(ready, s)
			} else {
				unofficial = append(unofficial, s)
			}
		}
	}
	if n := len(subs); n > 0 {
		t := subs[n-1].SubmissionTime
		e.LastSubmissionTime = &t
	}

	if best := selectBest(ready, o.GradingMode); best != nil {
		e.BestSubmissionID = best.ID
		e.Graded = true
		e.Points = best.Grade
		e.Unofficial = best.Status == model.SubmissionStatusUnofficial
	} else if best := selectBest(unofficial, o.GradingMode); best != nil {
		e.BestSubmissionID = best.ID
		e.Unofficial = true
		e.UnofficialPoints = best.Grade
	}

	if !a.revealed(o) {
		e.FeedbackRevealed = false
		e.Points = 0
		e.UnofficialPoints = 0
	}
	e.Passed = e.Points >= o.PointsToPass
	return e
}

// selectBest 按评分模式选出计分的提交；candidates 已按时间升序
func selectBest(candidates []*model.Submission, mode string) *model.Submission {
	var best *model.Submission
	for _, s := range candidates {
		if best == nil {
			best = s
			continue
		}
		if mode == model.GradingModeLast {
			best = s
			continue
		}
		// 同分取较晚的提交
		if s.Grade >= best.Grade {
			best = s
		}
	}
	return best
}

func (a *aggregator) revealed(o *ObjectFields) bool {
	switch o.RevealRule {
	case model.RevealDeadline:
		at := o.ClosingTime
		if o.LateTime != nil && o.LateTime.After(at) {
			at = *o.LateTime
		}
		if a.now.Before(at) {
			if a.pt.InvalidateAt == nil || at.Before(*a.pt.InvalidateAt) {
				t := at
				a.pt.InvalidateAt = &t
			}
			return false
		}
		return true
	case model.RevealManual:
		return o.FeedbackRevealed
	}
	return true
}

// walk 汇总 parent 的子节点。gated 为 true 表示上层存在未通过的确认练习。
func (a *aggregator) walk(module, parent *PointsNode, gated bool) {
	level := gated
	for _, c := range parent.Children {
		if c.Entry != nil && c.Node.Object.ConfirmTheLevel && !c.Entry.Passed {
			level = true
		}
	}
	for _, c := range parent.Children {
		if c.Entry != nil {
			a.add(module, c, level)
		}
		a.walk(module, c, level)
	}
}

func (a *aggregator) add(module, n *PointsNode, gated bool) {
	e, o := n.Entry, n.Node.Object
	e.Unconfirmed = gated
	if !n.Node.IsListed() {
		return
	}

	targets := []*Totals{module.Totals, &a.pt.Total}
	if c, ok := a.pt.Categories[o.CategoryID]; ok {
		targets = append(targets, &c.Totals)
	}
	for _, t := range targets {
		t.SubmissionCount += e.SubmissionCount
	}

	// 确认练习自身不计分，也不进入 unconfirmed 桶
	if o.ConfirmTheLevel {
		return
	}
	if gated {
		for _, t := range targets {
			t.UnconfirmedPointsByDifficulty[o.Difficulty] += e.Points
		}
		return
	}

	for _, t := range targets {
		t.Points += e.Points
		t.PointsByDifficulty[o.Difficulty] += e.Points
	}
	if !e.Passed {
		a.failed[module.Node.ID] = true
	}
}
