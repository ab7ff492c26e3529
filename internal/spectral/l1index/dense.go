package l1index

import (
	"gonum.org/v1/gonum/mat"
)

// Dense holds every pairwise squared distance in a symmetric matrix.
// O(n²) memory and build time; queries are a single row scan.
type Dense struct {
	n   int
	sym *mat.SymDense
}

// NewDense computes all pairwise distances under metric.
func NewDense(points [][]float64, metric Metric) (*Dense, error) {
	if _, err := checkPoints(points, metric); err != nil {
		return nil, err
	}
	n := len(points)
	if n == 0 {
		return &Dense{}, nil
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sym.SetSym(i, j, metric.SquaredDistance(points[i], points[j]))
		}
	}
	return &Dense{n: n, sym: sym}, nil
}

func (d *Dense) Len() int { return d.n }

func (d *Dense) Neighbors(id int, radius float64) ([]int, error) {
	if err := checkID(id, d.n); err != nil {
		return nil, err
	}
	r2 := radius * radius
	out := make([]int, 0, 8)
	for j := 0; j < d.n; j++ {
		if j == id || d.sym.At(id, j) <= r2 {
			out = append(out, j)
		}
	}
	return out, nil
}

var _ Index = (*Dense)(nil)
