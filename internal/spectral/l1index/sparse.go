package l1index

import (
	"math"

	"gonum.org/v1/gonum/graph/simple"
)

// Sparse stores distances only between points at most MaxIndexGap apart
// in input order, as a weighted undirected graph.
//
// Precondition: points are time-ordered and the metric grows with time
// separation, so any true neighbour lies within the index gap. This is
// not checked; a gap that is too small silently drops neighbours.
type Sparse struct {
	n      int
	maxGap int
	g      *simple.WeightedUndirectedGraph
}

// NewSparse builds the adjacency graph. maxGap <= 0 means unbounded,
// which degenerates to the dense all-pairs search.
func NewSparse(points [][]float64, metric Metric, maxGap int) (*Sparse, error) {
	if _, err := checkPoints(points, metric); err != nil {
		return nil, err
	}
	n := len(points)
	if maxGap <= 0 || maxGap > n {
		maxGap = n
	}
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n && j-i <= maxGap; j++ {
			d2 := metric.SquaredDistance(points[i], points[j])
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(int64(i)), simple.Node(int64(j)), d2))
		}
	}
	return &Sparse{n: n, maxGap: maxGap, g: g}, nil
}

func (s *Sparse) Len() int { return s.n }

// MaxIndexGap returns the effective forward search bound.
func (s *Sparse) MaxIndexGap() int { return s.maxGap }

func (s *Sparse) Neighbors(id int, radius float64) ([]int, error) {
	if err := checkID(id, s.n); err != nil {
		return nil, err
	}
	r2 := radius * radius
	out := []int{id}
	from := s.g.From(int64(id))
	for from.Next() {
		other := from.Node().ID()
		w, ok := s.g.Weight(int64(id), other)
		if ok && w <= r2 {
			out = append(out, int(other))
		}
	}
	return sortedIDs(out), nil
}

var _ Index = (*Sparse)(nil)
