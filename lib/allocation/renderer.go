package allocation

import (
	"github.com/sboehler/folio/lib/common/multimap"
	"github.com/sboehler/folio/lib/common/table"
)

// Node is a node of the class tree.
type Node = multimap.Node[Bucket]

// Renderer renders a report as a table.
type Renderer struct {
	// Flat renders one row per bucket instead of a class tree.
	Flat bool

	table *table.Table
}

// Render renders the report. The tree groups buckets by asset class, with
// subtotals per class.
func (rn *Renderer) Render(rep *Report) *table.Table {
	rn.table = table.New(1, 5)
	rn.table.AddSeparatorRow()
	header := rn.table.AddRow().AddText("Class", table.Center)
	for _, h := range []string{"Value", "Weight", "Target", "Delta", "Delta Value"} {
		header.AddText(h, table.Center)
	}
	rn.table.AddSeparatorRow()
	if rn.Flat {
		for _, b := range rep.Buckets {
			rn.renderBucket(b.Label, 0, b)
		}
	} else {
		root := Tree(rep)
		for _, n := range root.Sorted {
			n.PreOrder(func(n *Node, depth int) {
				rn.renderBucket(n.Segment, 2*depth, n.Value)
			})
		}
	}
	rn.table.AddSeparatorRow()
	rn.renderBucket("Total", 0, rep.Sum())
	rn.table.AddSeparatorRow()
	return rn.table
}

func (rn *Renderer) renderBucket(label string, indent int, b Bucket) {
	rn.table.AddRow().
		AddIndented(label, indent).
		AddNumber(b.CurrentValue).
		AddPercent(b.CurrentPercent).
		AddPercent(b.TargetPercent).
		AddPercent(b.DeltaPercent).
		AddNumber(b.DeltaValue)
}

// Tree arranges the buckets by asset class. Inner nodes hold the sums of
// their children.
func Tree(rep *Report) *Node {
	root := multimap.New[Bucket]("")
	for _, b := range rep.Buckets {
		root.GetOrCreate([]string{b.Key.AssetClass, b.Label}).Value = b
	}
	root.PostOrder(func(n *Node) {
		if n.IsLeaf() {
			return
		}
		var sum Bucket
		for _, ch := range n.Children {
			sum.CurrentValue = sum.CurrentValue.Add(ch.Value.CurrentValue)
			sum.CurrentPercent = sum.CurrentPercent.Add(ch.Value.CurrentPercent)
			sum.TargetPercent = sum.TargetPercent.Add(ch.Value.TargetPercent)
			sum.TargetValue = sum.TargetValue.Add(ch.Value.TargetValue)
			sum.DeltaPercent = sum.DeltaPercent.Add(ch.Value.DeltaPercent)
			sum.DeltaValue = sum.DeltaValue.Add(ch.Value.DeltaValue)
		}
		n.Value = sum
	})
	root.Sort(multimap.SortAlpha)
	return root
}
