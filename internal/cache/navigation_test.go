package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeIDs(steps []Step[*Node]) []uint {
	var ids []uint
	for _, s := range steps {
		if s.Kind == StepNode {
			ids = append(ids, s.Node.ID)
		}
	}
	return ids
}

func TestForwardBackwardRoundTrip(t *testing.T) {
	tree := buildSample(t)

	forward := nodeIDs(Collect(Forward(tree.Modules, nodeChildren, nil, false, false).Next))
	backward := nodeIDs(Collect(Backward(tree.Modules, nodeChildren, nil, false).Next))

	assert.Equal(t, []uint{10, 100, 101, 102, 20, 200, 201}, forward)
	require.Len(t, backward, len(forward))
	for i := range forward {
		assert.Equal(t, forward[i], backward[len(backward)-1-i])
	}
}

func TestForwardSkipFirstYieldsSuccessor(t *testing.T) {
	tree := buildSample(t)
	all := Collect(Forward(tree.Modules, nodeChildren, nil, false, false).Next)

	for i, s := range all {
		next, ok := Forward(tree.Modules, nodeChildren, s.Path, true, false).Next()
		if i == len(all)-1 {
			assert.False(t, ok, "last node has no successor")
			continue
		}
		require.True(t, ok)
		assert.Equal(t, all[i+1].Node.ID, next.Node.ID, "successor of %v", s.Path)
		assert.Equal(t, all[i+1].Path, next.Path)
	}
}

func TestBackwardSkipFirstYieldsPredecessor(t *testing.T) {
	tree := buildSample(t)
	all := Collect(Forward(tree.Modules, nodeChildren, nil, false, false).Next)

	for i, s := range all {
		prev, ok := Backward(tree.Modules, nodeChildren, s.Path, true).Next()
		if i == 0 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, all[i-1].Node.ID, prev.Node.ID, "predecessor of %v", s.Path)
	}
}

func TestBackwardFromFirstIsEmpty(t *testing.T) {
	tree := buildSample(t)
	steps := Collect(Backward(tree.Modules, nodeChildren, []int{0}, true).Next)
	assert.Empty(t, steps)
}

func TestIteratorsOnEmptyOrInvalidInput(t *testing.T) {
	assert.Empty(t, Collect(Forward([]*Node{}, nodeChildren, nil, false, true).Next))
	assert.Empty(t, Collect(Backward([]*Node{}, nodeChildren, nil, false).Next))

	tree := buildSample(t)
	assert.Empty(t, Collect(Forward(tree.Modules, nodeChildren, []int{5, 1}, false, false).Next))
	assert.Empty(t, Collect(Backward(tree.Modules, nodeChildren, []int{0, 3}, false).Next))
}

func TestForwardEnclosedMarkers(t *testing.T) {
	tree := buildSample(t)
	steps := tree.FlatFull()

	var kinds []string
	for _, s := range steps {
		switch s.Kind {
		case StepLevelDown:
			kinds = append(kinds, "down")
		case StepLevelUp:
			kinds = append(kinds, "up")
		default:
			kinds = append(kinds, s.Node.Number)
		}
	}
	assert.Equal(t, []string{
		"1", "down", "1.1", "down", "1.1.1", "1.1.2", "up", "up",
		"2", "down", "2.1", "2.2", "up",
	}, kinds)

	depth := 0
	for _, s := range steps {
		switch s.Kind {
		case StepLevelDown:
			depth++
		case StepLevelUp:
			depth--
		default:
			assert.Equal(t, depth, s.Depth)
		}
		assert.GreaterOrEqual(t, depth, 0)
	}
	assert.Equal(t, 0, depth, "levels are balanced")
}

func TestForwardFromMiddle(t *testing.T) {
	tree := buildSample(t)
	ids := nodeIDs(Collect(Forward(tree.Modules, nodeChildren, []int{0, 0, 1}, false, false).Next))
	assert.Equal(t, []uint{102, 20, 200, 201}, ids)
}
