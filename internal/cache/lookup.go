package cache

import (
	"sort"
	"strings"
)

// NodeRef 指向树中的模块或学习对象
type NodeRef struct {
	Type NodeType
	ID   uint
}

func ModuleRef(id uint) NodeRef   { return NodeRef{Type: NodeModule, ID: id} }
func ExerciseRef(id uint) NodeRef { return NodeRef{Type: NodeExercise, ID: id} }

// Found find 的结果：节点、祖先链（由根到父）、前后相邻的已列出节点
type Found struct {
	Node      *Node
	Path      []int
	Ancestors []*Node
	Previous  *Node
	Next      *Node
}

// NodeAt 按索引路径取节点
func (t *Tree) NodeAt(path []int) (*Node, error) {
	nodes := t.Modules
	var n *Node
	for _, i := range path {
		if i < 0 || i >= len(nodes) {
			return nil, notFound("path", path)
		}
		n = nodes[i]
		nodes = n.Children
	}
	if n == nil {
		return nil, notFound("path", path)
	}
	return n, nil
}

// PathOf 返回节点的索引路径；章节与练习共用 ExerciseIndex
func (t *Tree) PathOf(ref NodeRef) ([]int, error) {
	var (
		path []int
		ok   bool
	)
	switch ref.Type {
	case NodeModule:
		path, ok = t.ModuleIndex[ref.ID]
	case NodeExercise, NodeChapter:
		path, ok = t.ExerciseIndex[ref.ID]
	}
	if !ok {
		return nil, notFound(string(ref.Type), ref.ID)
	}
	return path, nil
}

func (t *Tree) Module(id uint) (*Node, error) {
	path, err := t.PathOf(ModuleRef(id))
	if err != nil {
		return nil, err
	}
	return t.NodeAt(path)
}

func (t *Tree) Exercise(id uint) (*Node, error) {
	path, err := t.PathOf(ExerciseRef(id))
	if err != nil {
		return nil, err
	}
	return t.NodeAt(path)
}

// Find 返回节点、祖先以及前后最近的已列出节点
func (t *Tree) Find(ref NodeRef) (*Found, error) {
	path, err := t.PathOf(ref)
	if err != nil {
		return nil, err
	}
	node, err := t.NodeAt(path)
	if err != nil {
		return nil, err
	}
	found := &Found{Node: node, Path: path}
	for depth := 1; depth < len(path); depth++ {
		a, err := t.NodeAt(path[:depth])
		if err != nil {
			return nil, err
		}
		found.Ancestors = append(found.Ancestors, a)
	}

	back := Backward(t.Modules, nodeChildren, path, true)
	for s, ok := back.Next(); ok; s, ok = back.Next() {
		if s.Node.IsListed() {
			found.Previous = s.Node
			break
		}
	}
	fwd := Forward(t.Modules, nodeChildren, path, true, false)
	for s, ok := fwd.Next(); ok; s, ok = fwd.Next() {
		if s.Node.IsListed() {
			found.Next = s.Node
			break
		}
	}
	return found, nil
}

// FindByPath 由模块与相对路径（如 "chapter/exercise"）找到学习对象 id
func (t *Tree) FindByPath(moduleID uint, relPath string) (uint, error) {
	paths, ok := t.Paths[moduleID]
	if !ok {
		return 0, notFound("module", moduleID)
	}
	id, ok := paths[strings.Trim(relPath, "/")]
	if !ok {
		return 0, notFound("path", relPath)
	}
	return id, nil
}

// FindNumber 按层级编号（如 "2.3.1"）查找
func (t *Tree) FindNumber(number string) (*Node, error) {
	parts := strings.Split(number, ".")
	search := t.Modules
	var hit *Node
	for i := range parts {
		prefix := strings.Join(parts[:i+1], ".")
		hit = nil
		for _, n := range search {
			if n.Number == prefix {
				hit = n
				break
			}
		}
		if hit == nil {
			return nil, notFound("number", number)
		}
		search = hit.Children
	}
	return hit, nil
}

func (t *Tree) Category(id uint) (*CategoryRollup, error) {
	c, ok := t.Categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return c, nil
}

// CategoryList 按 id 排序的分类
func (t *Tree) CategoryList() []*CategoryRollup {
	list := make([]*CategoryRollup, 0, len(t.Categories))
	for _, c := range t.Categories {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Exercises 文档顺序的全部可提交练习
func (t *Tree) Exercises() []*Node {
	return t.SearchExercises(func(*Node) bool { return true })
}

// SearchExercises 文档顺序中满足条件的练习
func (t *Tree) SearchExercises(match func(*Node) bool) []*Node {
	var out []*Node
	it := Forward(t.Modules, nodeChildren, nil, false, false)
	for s, ok := it.Next(); ok; s, ok = it.Next() {
		if s.Node.Type == NodeExercise && match(s.Node) {
			out = append(out, s.Node)
		}
	}
	return out
}

// FlatModule 单个模块内的节点序列（不含模块本身）
func (t *Tree) FlatModule(moduleID uint, enclosed bool) ([]Step[*Node], error) {
	m, err := t.Module(moduleID)
	if err != nil {
		return nil, err
	}
	return Collect(Forward(m.Children, nodeChildren, nil, false, enclosed).Next), nil
}

// FlatFull 整棵树的节点序列，带层级标记
func (t *Tree) FlatFull() []Step[*Node] {
	return Collect(Forward(t.Modules, nodeChildren, nil, false, true).Next)
}
