package l2cluster

import (
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
)

// Clusterer abstracts the clustering algorithm so assemblers can be
// exercised with alternative strategies.
type Clusterer interface {
	// Cluster partitions the points of idx.
	Cluster(idx l1index.Index) (Result, error)

	// GetParams returns the current clustering parameters.
	GetParams() Params

	// SetParams updates the clustering parameters.
	SetParams(params Params)
}

// DBSCANClusterer implements Clusterer with DBSCAN.
type DBSCANClusterer struct {
	params Params
}

// NewDBSCANClusterer creates a DBSCAN clusterer with the given parameters.
func NewDBSCANClusterer(radius float64, minPoints int) *DBSCANClusterer {
	return &DBSCANClusterer{params: Params{Radius: radius, MinPoints: minPoints}}
}

// Cluster runs DBSCAN over idx.
func (c *DBSCANClusterer) Cluster(idx l1index.Index) (Result, error) {
	return DBSCAN(idx, c.params)
}

// GetParams returns the current clustering parameters.
func (c *DBSCANClusterer) GetParams() Params {
	return c.params
}

// SetParams updates the clustering parameters.
func (c *DBSCANClusterer) SetParams(params Params) {
	c.params = params
}

// Verify at compile time that *DBSCANClusterer implements Clusterer.
var _ Clusterer = (*DBSCANClusterer)(nil)
