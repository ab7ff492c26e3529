package l2cluster

import (
	"fmt"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
)

// Unassigned is the cluster id of a point that belongs to no cluster.
const Unassigned = -1

// Params configures DBSCAN.
type Params struct {
	Radius    float64 // neighbourhood radius in index units
	MinPoints int     // neighbours (self included) needed for a core point
}

// Validate rejects parameters that cannot produce a clustering.
func (p Params) Validate() error {
	if p.MinPoints < 1 {
		return fmt.Errorf("min points must be >= 1, got %d: %w", p.MinPoints, spectral.ErrInvalidConfig)
	}
	if p.Radius < 0 {
		return fmt.Errorf("radius must be non-negative, got %v: %w", p.Radius, spectral.ErrInvalidConfig)
	}
	return nil
}

// Cluster is an ordered list of point ids.
type Cluster struct {
	PointIDs []int
}

// Result is the partition DBSCAN produced.
type Result struct {
	// ClusterOf maps each point id to its cluster id, or Unassigned.
	ClusterOf []int
	// Clusters are numbered in discovery order; Clusters[k] holds the
	// points whose ClusterOf is k, in the order they were assigned.
	Clusters []Cluster
	// Noise is true for points reached from no core point.
	Noise []bool
}

// NoiseCount returns how many points ended as noise.
func (r Result) NoiseCount() int {
	n := 0
	for _, isNoise := range r.Noise {
		if isNoise {
			n++
		}
	}
	return n
}

// DBSCAN clusters the points of idx. An index error (for example an
// out-of-range id from a misbehaving backend) aborts the run.
func DBSCAN(idx l1index.Index, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	n := idx.Len()
	res := Result{
		ClusterOf: make([]int, n),
		Noise:     make([]bool, n),
	}
	for i := range res.ClusterOf {
		res.ClusterOf[i] = Unassigned
	}
	visited := make([]bool, n)

	for p := 0; p < n; p++ {
		if visited[p] {
			continue
		}
		visited[p] = true

		neighbors, err := idx.Neighbors(p, params.Radius)
		if err != nil {
			return Result{}, fmt.Errorf("dbscan: point %d: %w", p, err)
		}
		if len(neighbors) < params.MinPoints {
			// Not terminal: a later core point may still absorb p.
			res.Noise[p] = true
			continue
		}

		cid := len(res.Clusters)
		res.Clusters = append(res.Clusters, Cluster{})
		res.assign(p, cid)

		if err := res.expand(idx, params, visited, neighbors, cid); err != nil {
			return Result{}, err
		}
	}

	return res, nil
}

// expand grows cluster cid breadth-first from a core point's neighbours.
func (r *Result) expand(idx l1index.Index, params Params, visited []bool, queue []int, cid int) error {
	for j := 0; j < len(queue); j++ {
		q := queue[j]

		if !visited[q] {
			visited[q] = true
			qNeighbors, err := idx.Neighbors(q, params.Radius)
			if err != nil {
				return fmt.Errorf("dbscan: point %d: %w", q, err)
			}
			if len(qNeighbors) >= params.MinPoints {
				queue = append(queue, qNeighbors...)
			}
		}

		if r.ClusterOf[q] == Unassigned {
			r.assign(q, cid)
		}
	}
	return nil
}

func (r *Result) assign(p, cid int) {
	r.ClusterOf[p] = cid
	r.Noise[p] = false
	r.Clusters[cid].PointIDs = append(r.Clusters[cid].PointIDs, p)
}
