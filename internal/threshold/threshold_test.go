package threshold

import (
	"testing"

	"course_cache_engine/internal/cache"
	"course_cache_engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totals(byDifficulty map[string]int, unconfirmed map[string]int) *cache.Totals {
	t := &cache.Totals{
		PointsByDifficulty:            byDifficulty,
		UnconfirmedPointsByDifficulty: unconfirmed,
	}
	for _, p := range byDifficulty {
		t.Points += p
	}
	return t
}

func TestLimitsPassed(t *testing.T) {
	limits := []PointLimit{{Difficulty: "B", Limit: 875}, {Difficulty: "A", Limit: 1900}}

	tests := []struct {
		name          string
		totals        *cache.Totals
		limits        []PointLimit
		consumeHarder bool
		unconfirmed   bool
		want          bool
	}{
		{"harder has no surplus", totals(map[string]int{"A": 1900, "B": 400}, nil), limits, true, false, false},
		{"harder surplus covers the deficit", totals(map[string]int{"A": 2200, "B": 575}, nil), limits, true, false, true},
		{"no consuming", totals(map[string]int{"A": 2200, "B": 575}, nil), limits, false, false, false},
		{"both met", totals(map[string]int{"A": 1900, "B": 875}, nil), limits, false, false, true},
		{"surplus only partially covers", totals(map[string]int{"A": 2000, "B": 700}, nil), limits, true, false, false},
		{"easier never covers harder", totals(map[string]int{"A": 1800, "B": 1200}, nil), limits, true, false, false},
		{"total limit", totals(map[string]int{"A": 30, "": 20}, nil), []PointLimit{{Limit: 50}}, false, false, true},
		{"total limit missed", totals(map[string]int{"A": 29, "": 20}, nil), []PointLimit{{Limit: 50}}, false, false, false},
		{
			"unconfirmed merged into buckets",
			totals(map[string]int{"A": 1900, "B": 800}, map[string]int{"B": 75}),
			limits, false, true, true,
		},
		{
			"unconfirmed ignored by default",
			totals(map[string]int{"A": 1900, "B": 800}, map[string]int{"B": 75}),
			limits, false, false, false,
		},
		{
			"unconfirmed counts toward total",
			totals(map[string]int{"": 40}, map[string]int{"": 10}),
			[]PointLimit{{Limit: 50}}, false, true, true,
		},
		{"no limits", totals(nil, nil), nil, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LimitsPassed(tt.totals, tt.limits, tt.consumeHarder, tt.unconfirmed))
		})
	}
}

func TestLimitsPassedLeavesTotalsUntouched(t *testing.T) {
	tot := totals(map[string]int{"A": 2200, "B": 575}, nil)
	LimitsPassed(tot, []PointLimit{{Difficulty: "B", Limit: 875}, {Difficulty: "A", Limit: 1900}}, true, false)
	assert.Equal(t, 2200, tot.PointsByDifficulty["A"])
	assert.Equal(t, 575, tot.PointsByDifficulty["B"])
}

type fakePoints struct {
	total      cache.Totals
	modules    map[uint]*cache.Totals
	categories map[uint]*cache.Totals
	exercises  map[uint]*cache.Entry
}

func (f *fakePoints) CourseTotals() *cache.Totals { return &f.total }

func (f *fakePoints) ModuleTotals(id uint) (*cache.Totals, error) {
	if t, ok := f.modules[id]; ok {
		return t, nil
	}
	return nil, cache.ErrNoSuchContent
}

func (f *fakePoints) CategoryTotals(id uint) (*cache.Totals, error) {
	if t, ok := f.categories[id]; ok {
		return t, nil
	}
	return nil, cache.ErrNoSuchContent
}

func (f *fakePoints) ExerciseEntry(id uint) (*cache.Entry, error) {
	if e, ok := f.exercises[id]; ok {
		return e, nil
	}
	return nil, cache.ErrNoSuchContent
}

func TestIsPassed(t *testing.T) {
	points := &fakePoints{
		total:      cache.Totals{Points: 100, PointsByDifficulty: map[string]int{"": 100}},
		modules:    map[uint]*cache.Totals{1: {Passed: true}, 2: {Passed: false}},
		categories: map[uint]*cache.Totals{5: {Passed: true}},
		exercises:  map[uint]*cache.Entry{9: {Passed: true}, 10: {Passed: false}},
	}

	tests := []struct {
		name    string
		req     Requirements
		want    bool
		wantErr bool
	}{
		{"all requirements met", Requirements{Modules: []uint{1}, Categories: []uint{5}, Exercises: []uint{9}, Limits: []PointLimit{{Limit: 100}}}, true, false},
		{"module failed", Requirements{Modules: []uint{1, 2}}, false, false},
		{"exercise failed", Requirements{Exercises: []uint{10}}, false, false},
		{"points too low", Requirements{Limits: []PointLimit{{Limit: 101}}}, false, false},
		{"unknown module", Requirements{Modules: []uint{77}}, false, true},
		{"unknown category", Requirements{Categories: []uint{77}}, false, true},
		{"unknown exercise", Requirements{Exercises: []uint{77}}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsPassed(points, tt.req, false)
			if tt.wantErr {
				assert.ErrorIs(t, err, cache.ErrNoSuchContent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromModel(t *testing.T) {
	m := &model.Threshold{
		Name:                "Grade 1",
		ConsumeHarderPoints: true,
		Requirements: []model.ThresholdRequirement{
			{Kind: model.RequirementModule, TargetID: 3},
			{Kind: model.RequirementCategory, TargetID: 4},
			{Kind: model.RequirementExercise, TargetID: 5},
			{Kind: model.RequirementModule, TargetID: 6},
		},
		Points: []model.ThresholdPoints{
			{ID: 3, Difficulty: "A", Limit: 1900, Order: 2},
			{ID: 2, Difficulty: "", Limit: 100, Order: 3},
			{ID: 1, Difficulty: "B", Limit: 875, Order: 1},
		},
	}

	r := FromModel(m)
	assert.Equal(t, "Grade 1", r.Name)
	assert.True(t, r.ConsumeHarderPoints)
	assert.Equal(t, []uint{3, 6}, r.Modules)
	assert.Equal(t, []uint{4}, r.Categories)
	assert.Equal(t, []uint{5}, r.Exercises)
	assert.Equal(t, []PointLimit{
		{Difficulty: "B", Limit: 875},
		{Difficulty: "A", Limit: 1900},
		{Difficulty: "", Limit: 100},
	}, r.Limits)
}
