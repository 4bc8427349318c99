// Package hierarchy turns flat parent-referencing records into trees.
//
// Records are kept in their input slice and addressed by position; a side
// index maps each parent id to the positions of its children. Walks track
// visited positions, so self references, cycles and duplicate ids in the
// input never cause unbounded recursion.
package hierarchy

// Index is the arena view of a flat record set.
type Index[K comparable] struct {
	ids      []K
	roots    []int
	children map[K][]int
}

// NewIndex scans items once. An item whose parentID reports false is a root.
func NewIndex[T any, K comparable](items []T, id func(T) K, parentID func(T) (K, bool)) *Index[K] {
	idx := &Index[K]{
		ids:      make([]K, len(items)),
		children: make(map[K][]int),
	}
	for i, item := range items {
		idx.ids[i] = id(item)
		parent, ok := parentID(item)
		if !ok {
			idx.roots = append(idx.roots, i)
			continue
		}
		idx.children[parent] = append(idx.children[parent], i)
	}
	return idx
}

func (x *Index[K]) Len() int { return len(x.ids) }

// Roots returns the positions of the root records in input order.
func (x *Index[K]) Roots() []int { return x.roots }

// Children returns the positions of the records whose parent is the record at pos.
func (x *Index[K]) Children(pos int) []int { return x.children[x.ids[pos]] }

// Walk calls fn for every record reachable from a root, in pre-order.
// Records whose parent is missing from the input are never visited.
func (x *Index[K]) Walk(fn func(pos, depth int)) {
	visited := make([]bool, len(x.ids))
	var visit func(pos, depth int)
	visit = func(pos, depth int) {
		visited[pos] = true
		fn(pos, depth)
		for _, child := range x.Children(pos) {
			if !visited[child] {
				visit(child, depth+1)
			}
		}
	}
	for _, root := range x.roots {
		if !visited[root] {
			visit(root, 0)
		}
	}
}

// Descendants returns the positions below pos in pre-order, excluding pos.
func (x *Index[K]) Descendants(pos int) []int {
	visited := make([]bool, len(x.ids))
	visited[pos] = true
	var out []int
	var visit func(cur int)
	visit = func(cur int) {
		for _, child := range x.Children(cur) {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			visit(child)
		}
	}
	visit(pos)
	return out
}

// Build assembles items into a forest and returns the roots. setChildren is
// called once for every reachable item with its children in input order
// (an empty, non-nil slice for leaves). T is expected to be a pointer type so
// that setChildren can mutate it. Items whose parent id is not present in
// items are dropped.
func Build[T any, K comparable](items []T, id func(T) K, parentID func(T) (K, bool), setChildren func(T, []T)) []T {
	idx := NewIndex(items, id, parentID)
	kids := make([][]T, len(items))
	reachable := make([]bool, len(items))
	idx.Walk(func(pos, _ int) {
		reachable[pos] = true
	})

	// A position is attached under the first reachable parent that claims it.
	claimed := make([]bool, len(items))
	for _, root := range idx.Roots() {
		claimed[root] = true
	}
	idx.Walk(func(pos, _ int) {
		list := make([]T, 0, len(idx.Children(pos)))
		for _, child := range idx.Children(pos) {
			if claimed[child] || !reachable[child] {
				continue
			}
			claimed[child] = true
			list = append(list, items[child])
		}
		kids[pos] = list
	})

	roots := make([]T, 0, len(idx.Roots()))
	for pos := range items {
		if reachable[pos] {
			setChildren(items[pos], kids[pos])
		}
	}
	for _, root := range idx.Roots() {
		roots = append(roots, items[root])
	}
	return roots
}

// Flatten lists the ids of a forest in pre-order, visiting each id once.
func Flatten[T any, K comparable](roots []T, id func(T) K, children func(T) []T) []K {
	seen := make(map[K]bool)
	var out []K
	var visit func(T)
	visit = func(item T) {
		key := id(item)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, key)
		for _, child := range children(item) {
			visit(child)
		}
	}
	for _, root := range roots {
		visit(root)
	}
	return out
}
