package l1index

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree answers Euclidean radius queries with a balanced k-d tree. It
// suits large point clouds where the dense matrix would not fit.
type KDTree struct {
	points [][]float64
	tree   *kdtree.Tree
}

// NewKDTree builds a balanced tree over points.
func NewKDTree(points [][]float64) (*KDTree, error) {
	if _, err := checkPoints(points, Euclidean{}); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return &KDTree{}, nil
	}
	tp := make(treePoints, len(points))
	for i, p := range points {
		tp[i] = treePoint{id: i, coords: p}
	}
	return &KDTree{points: points, tree: kdtree.New(tp, false)}, nil
}

func (k *KDTree) Len() int { return len(k.points) }

func (k *KDTree) Neighbors(id int, radius float64) ([]int, error) {
	if err := checkID(id, len(k.points)); err != nil {
		return nil, err
	}
	r2 := radius * radius
	keep := kdtree.NewDistKeeper(r2)
	k.tree.NearestSet(keep, treePoint{id: -1, coords: k.points[id]})

	out := make([]int, 0, len(keep.Heap))
	seenSelf := false
	for _, c := range keep.Heap {
		// The keeper seeds its heap with a sentinel that carries no point.
		if c.Comparable == nil || c.Dist > r2 {
			continue
		}
		pid := c.Comparable.(treePoint).id
		if pid == id {
			seenSelf = true
		}
		out = append(out, pid)
	}
	if !seenSelf {
		out = append(out, id)
	}
	return sortedIDs(out), nil
}

var _ Index = (*KDTree)(nil)

// treePoint carries the caller's point id through the tree.
type treePoint struct {
	id     int
	coords []float64
}

func (p treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(treePoint)
	return p.coords[d] - q.coords[d]
}

func (p treePoint) Dims() int { return len(p.coords) }

// Distance returns the squared Euclidean distance, matching the Metric
// contract so tree and matrix backends agree bit for bit.
func (p treePoint) Distance(c kdtree.Comparable) float64 {
	return Euclidean{}.SquaredDistance(p.coords, c.(treePoint).coords)
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p treePoints) Len() int                      { return len(p) }
func (p treePoints) Pivot(d kdtree.Dim) int {
	return treePlane{Dim: d, points: p}.pivot()
}
func (p treePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// treePlane sorts a treePoints slice along one dimension for pivoting.
type treePlane struct {
	kdtree.Dim
	points treePoints
}

func (p treePlane) Len() int { return len(p.points) }
func (p treePlane) Less(i, j int) bool {
	return p.points[i].coords[p.Dim] < p.points[j].coords[p.Dim]
}
func (p treePlane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p treePlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p treePlane) pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
