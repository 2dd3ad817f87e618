package cache

// NodeAt 按索引路径取节点，路径与内容树一致
func (p *PointsTree) NodeAt(path []int) (*PointsNode, error) {
	nodes := p.Modules
	var n *PointsNode
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

func (p *PointsTree) Module(id uint) (*PointsNode, error) {
	path, ok := p.ModuleIndex[id]
	if !ok {
		return nil, notFound("module", id)
	}
	return p.NodeAt(path)
}

func (p *PointsTree) Exercise(id uint) (*PointsNode, error) {
	path, ok := p.ExerciseIndex[id]
	if !ok {
		return nil, notFound("exercise", id)
	}
	return p.NodeAt(path)
}

// ModuleTotals 实现 threshold.Points
func (p *PointsTree) ModuleTotals(id uint) (*Totals, error) {
	n, err := p.Module(id)
	if err != nil {
		return nil, err
	}
	return n.Totals, nil
}

func (p *PointsTree) CategoryTotals(id uint) (*Totals, error) {
	c, ok := p.Categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c.Totals, nil
}

func (p *PointsTree) ExerciseEntry(id uint) (*Entry, error) {
	n, err := p.Exercise(id)
	if err != nil {
		return nil, err
	}
	if n.Entry == nil {
		return nil, notFound("exercise", id)
	}
	return n.Entry, nil
}

func (p *PointsTree) CourseTotals() *Totals {
	return &p.Total
}

// PointsFound 成绩树上的 find 结果
type PointsFound struct {
	Node      *PointsNode
	Path      []int
	Ancestors []*PointsNode
	Previous  *PointsNode
	Next      *PointsNode
}

func (p *PointsTree) Find(ref NodeRef) (*PointsFound, error) {
	var (
		path []int
		ok   bool
	)
	if ref.Type == NodeModule {
		path, ok = p.ModuleIndex[ref.ID]
	} else {
		path, ok = p.ExerciseIndex[ref.ID]
	}
	if !ok {
		return nil, notFound(string(ref.Type), ref.ID)
	}
	n, err := p.NodeAt(path)
	if err != nil {
		return nil, err
	}
	f := &PointsFound{Node: n, Path: path}
	for i := 1; i < len(path); i++ {
		a, err := p.NodeAt(path[:i])
		if err != nil {
			return nil, err
		}
		f.Ancestors = append(f.Ancestors, a)
	}

	back := Backward(p.Modules, pointsChildren, path, true)
	for s, ok := back.Next(); ok; s, ok = back.Next() {
		if s.Node.Node.IsListed() {
			f.Previous = s.Node
			break
		}
	}
	fwd := Forward(p.Modules, pointsChildren, path, true, false)
	for s, ok := fwd.Next(); ok; s, ok = fwd.Next() {
		if s.Kind == StepNode && s.Node.Node.IsListed() {
			f.Next = s.Node
			break
		}
	}
	return f, nil
}

// Flat 成绩树的文档顺序展开
func (p *PointsTree) Flat(enclosed bool) []Step[*PointsNode] {
	return Collect(Forward(p.Modules, pointsChildren, nil, false, enclosed).Next)
}
