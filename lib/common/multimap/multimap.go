package multimap

import (
	"github.com/sboehler/folio/lib/common/compare"
	"github.com/sboehler/folio/lib/common/dict"
)

// Node is a node in a tree keyed by path segments.
type Node[V any] struct {
	Segment  string
	Value    V
	Children map[string]*Node[V]
	Sorted   []*Node[V]
}

func New[V any](segment string) *Node[V] {
	return &Node[V]{
		Segment:  segment,
		Children: make(map[string]*Node[V]),
	}
}

// GetOrCreate creates or returns the node at the given path.
func (n *Node[V]) GetOrCreate(ss []string) *Node[V] {
	if len(ss) == 0 {
		return n
	}
	head, tail := ss[0], ss[1:]
	return dict.
		GetDefault(n.Children, head, func() *Node[V] { return New[V](head) }).
		GetOrCreate(tail)
}

// IsLeaf reports whether the node has no children.
func (n *Node[V]) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node[V]) Sort(f compare.Compare[*Node[V]]) {
	for _, ch := range n.Children {
		ch.Sort(f)
	}
	n.Sorted = dict.SortedValues(n.Children, f)
}

func SortAlpha[V any](n1, n2 *Node[V]) compare.Order {
	return compare.Ordered(n1.Segment, n2.Segment)
}

// PostOrder visits the children before the node itself.
func (n *Node[V]) PostOrder(f func(*Node[V])) {
	for _, ch := range n.Children {
		ch.PostOrder(f)
	}
	f(n)
}

// PreOrder visits the node, then its sorted children, passing the depth
// relative to the receiver. Sort must have been called before.
func (n *Node[V]) PreOrder(f func(n *Node[V], depth int)) {
	n.preOrder(0, f)
}

func (n *Node[V]) preOrder(depth int, f func(*Node[V], int)) {
	f(n, depth)
	for _, ch := range n.Sorted {
		ch.preOrder(depth+1, f)
	}
}
