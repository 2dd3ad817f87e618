package threshold

import (
	"fmt"
	"sort"

	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/model"
)

// PointLimit 某个难度的分数下限；Difficulty 为空时与总分比较
type PointLimit struct {
	Difficulty string `json:"difficulty"`
	Limit      int    `json:"limit"`
}

// Requirements 一个阈值的全部条件。Limits 按难度由低到高排列。
type Requirements struct {
	Name                string       `json:"name"`
	Modules             []uint       `json:"modules"`
	Categories          []uint       `json:"categories"`
	Exercises           []uint       `json:"exercises"`
	Limits              []PointLimit `json:"limits"`
	ConsumeHarderPoints bool         `json:"consumeHarderPoints"`
}

// Points 阈值判断需要的成绩查询，*cache.PointsTree 实现了它
type Points interface {
	CourseTotals() *cache.Totals
	ModuleTotals(id uint) (*cache.Totals, error)
	CategoryTotals(id uint) (*cache.Totals, error)
	ExerciseEntry(id uint) (*cache.Entry, error)
}

// FromModel 由持久化的阈值记录构造条件
func FromModel(t *model.Threshold) Requirements {
	r := Requirements{
		Name:                t.Name,
		ConsumeHarderPoints: t.ConsumeHarderPoints,
	}
	for _, req := range t.Requirements {
		switch req.Kind {
		case model.RequirementModule:
			r.Modules = append(r.Modules, req.TargetID)
		case model.RequirementCategory:
			r.Categories = append(r.Categories, req.TargetID)
		case model.RequirementExercise:
			r.Exercises = append(r.Exercises, req.TargetID)
		}
	}
	limits := append([]model.ThresholdPoints(nil), t.Points...)
	sort.SliceStable(limits, func(i, j int) bool {
		if limits[i].Order != limits[j].Order {
			return limits[i].Order < limits[j].Order
		}
		return limits[i].ID < limits[j].ID
	})
	for _, l := range limits {
		r.Limits = append(r.Limits, PointLimit{Difficulty: l.Difficulty, Limit: l.Limit})
	}
	return r
}

// IsPassed 所有要求的模块、分类、练习都已通过，且分数满足各难度下限。
// unconfirmed 为 true 时把尚未确认的分数也算进去，用于预览。
func IsPassed(points Points, req Requirements, unconfirmed bool) (bool, error) {
	for _, id := range req.Modules {
		t, err := points.ModuleTotals(id)
		if err != nil {
			return false, fmt.Errorf("required module: %w", err)
		}
		if !t.Passed {
			return false, nil
		}
	}
	for _, id := range req.Categories {
		t, err := points.CategoryTotals(id)
		if err != nil {
			return false, fmt.Errorf("required category: %w", err)
		}
		if !t.Passed {
			return false, nil
		}
	}
	for _, id := range req.Exercises {
		e, err := points.ExerciseEntry(id)
		if err != nil {
			return false, fmt.Errorf("required exercise: %w", err)
		}
		if !e.Passed {
			return false, nil
		}
	}
	return LimitsPassed(points.CourseTotals(), req.Limits, req.ConsumeHarderPoints, unconfirmed), nil
}

// LimitsPassed 按难度检查分数下限。
//
// consumeHarder 时，较难难度超出自身下限的部分可以补给较容易难度的不足，
// 反方向不行。按 limits 的顺序逐个处理，不寻找全局最优的分配。
func LimitsPassed(totals *cache.Totals, limits []PointLimit, consumeHarder, unconfirmed bool) bool {
	total := totals.Points
	have := make(map[string]int, len(totals.PointsByDifficulty))
	for d, p := range totals.PointsByDifficulty {
		have[d] = p
	}
	if unconfirmed {
		for d, p := range totals.UnconfirmedPointsByDifficulty {
			have[d] += p
			total += p
		}
	}

	for i, l := range limits {
		if l.Difficulty == "" {
			if total < l.Limit {
				return false
			}
			continue
		}
		p := have[l.Difficulty]
		if p >= l.Limit {
			continue
		}
		if !consumeHarder {
			return false
		}
		for j := i + 1; j < len(limits) && p < l.Limit; j++ {
			h := limits[j]
			if h.Difficulty == "" {
				continue
			}
			surplus := have[h.Difficulty] - h.Limit
			if surplus <= 0 {
				continue
			}
			give := min(surplus, l.Limit-p)
			have[h.Difficulty] -= give
			p += give
		}
		have[l.Difficulty] = p
		if p < l.Limit {
			return false
		}
	}
	return true
}
