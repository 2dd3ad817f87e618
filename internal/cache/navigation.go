package cache

// StepKind 迭代产出的条目类型；LevelDown / LevelUp 标记层级变化，供模板开闭嵌套列表
type StepKind int

const (
	StepNode StepKind = iota
	StepLevelDown
	StepLevelUp
)

type Step[T any] struct {
	Kind  StepKind
	Node  T
	Path  []int
	Depth int
}

type frame[T any] struct {
	nodes []T
	i     int
}

type cursor[T any] struct {
	frames   []frame[T]
	children func(T) []T
}

// seek 按索引路径定位，路径无效时返回 false
func (c *cursor[T]) seek(roots []T, path []int) bool {
	nodes := roots
	for depth, i := range path {
		if i < 0 || i >= len(nodes) {
			c.frames = nil
			return false
		}
		c.frames = append(c.frames, frame[T]{nodes: nodes, i: i})
		if depth < len(path)-1 {
			nodes = c.children(nodes[i])
		}
	}
	return len(c.frames) > 0
}

func (c *cursor[T]) top() *frame[T] {
	return &c.frames[len(c.frames)-1]
}

func (c *cursor[T]) current() T {
	f := c.top()
	return f.nodes[f.i]
}

func (c *cursor[T]) path() []int {
	p := make([]int, len(c.frames))
	for i, f := range c.frames {
		p[i] = f.i
	}
	return p
}

func (c *cursor[T]) step() Step[T] {
	return Step[T]{Kind: StepNode, Node: c.current(), Path: c.path(), Depth: len(c.frames) - 1}
}

// ForwardIterator 文档顺序（深度优先、先序）遍历；惰性、有限、不可重启
type ForwardIterator[T any] struct {
	cursor[T]
	enclosed  bool
	skipFirst bool
	started   bool
	done      bool
	pending   []Step[T]
}

// Forward 从 start 开始向后遍历；start 为 nil 时从第一个节点开始。
// skipFirst 跳过 start 本身；enclosed 在层级变化处产出标记条目。
func Forward[T any](roots []T, children func(T) []T, start []int, skipFirst, enclosed bool) *ForwardIterator[T] {
	it := &ForwardIterator[T]{
		cursor:    cursor[T]{children: children},
		enclosed:  enclosed,
		skipFirst: skipFirst,
	}
	if start == nil {
		start = []int{0}
	}
	if !it.seek(roots, start) {
		it.done = true
	}
	return it
}

func (it *ForwardIterator[T]) Next() (Step[T], bool) {
	for len(it.pending) == 0 {
		if it.done {
			return Step[T]{}, false
		}
		it.advance()
	}
	s := it.pending[0]
	it.pending = it.pending[1:]
	return s, true
}

func (it *ForwardIterator[T]) advance() {
	if !it.started {
		it.started = true
		if !it.skipFirst {
			it.pending = append(it.pending, it.step())
		}
		return
	}
	if kids := it.children(it.current()); len(kids) > 0 {
		if it.enclosed {
			it.pending = append(it.pending, Step[T]{Kind: StepLevelDown, Path: it.path(), Depth: len(it.frames)})
		}
		it.frames = append(it.frames, frame[T]{nodes: kids})
		it.pending = append(it.pending, it.step())
		return
	}
	it.top().i++
	for it.top().i >= len(it.top().nodes) {
		if len(it.frames) == 1 {
			it.done = true
			return
		}
		it.frames = it.frames[:len(it.frames)-1]
		if it.enclosed {
			it.pending = append(it.pending, Step[T]{Kind: StepLevelUp, Path: it.path(), Depth: len(it.frames)})
		}
		it.top().i++
	}
	it.pending = append(it.pending, it.step())
}

// BackwardIterator 文档逆序遍历，不产出层级标记
type BackwardIterator[T any] struct {
	cursor[T]
	skipFirst bool
	started   bool
	done      bool
}

// Backward 从 start 开始向前遍历；start 为 nil 时从最后一个节点
// （最后一个子节点的最深处）开始
func Backward[T any](roots []T, children func(T) []T, start []int, skipFirst bool) *BackwardIterator[T] {
	it := &BackwardIterator[T]{
		cursor:    cursor[T]{children: children},
		skipFirst: skipFirst,
	}
	if start == nil {
		if len(roots) == 0 {
			it.done = true
			return it
		}
		it.frames = append(it.frames, frame[T]{nodes: roots, i: len(roots) - 1})
		it.descendLast()
		return it
	}
	if !it.seek(roots, start) {
		it.done = true
	}
	return it
}

func (it *BackwardIterator[T]) Next() (Step[T], bool) {
	for !it.done {
		if !it.started {
			it.started = true
			if !it.skipFirst {
				return it.step(), true
			}
		}
		f := it.top()
		if f.i > 0 {
			f.i--
			it.descendLast()
			return it.step(), true
		}
		if len(it.frames) == 1 {
			it.done = true
			break
		}
		it.frames = it.frames[:len(it.frames)-1]
		return it.step(), true
	}
	return Step[T]{}, false
}

func (it *BackwardIterator[T]) descendLast() {
	for {
		kids := it.children(it.current())
		if len(kids) == 0 {
			return
		}
		it.frames = append(it.frames, frame[T]{nodes: kids, i: len(kids) - 1})
	}
}

// Collect 取出迭代器剩余的全部条目
func Collect[T any](next func() (Step[T], bool)) []Step[T] {
	var out []Step[T]
	for {
		s, ok := next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}
