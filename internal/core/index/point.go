// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file adapts catalog tracks to the gonum k-d tree interfaces. Each
// track is represented by a trackPoint carrying its normalized feature
// vector; trackPoints and plane implement the sorting hooks the tree builder
// needs to pick median pivots per dimension.
package index

import (
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// trackPoint is one catalog entry in feature space. Query points use a nil
// track.
type trackPoint struct {
	vec   kdtree.Point
	track *model.Track
}

// Compare returns the signed distance of p from the plane through q along
// dimension d.
func (p trackPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(trackPoint)
	return p.vec[d] - q.vec[d]
}

// Dims returns the number of feature dimensions.
func (p trackPoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance between p and c.
func (p trackPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(trackPoint)
	return p.vec.Distance(q.vec)
}

// trackPoints is a collection of trackPoint values satisfying
// kdtree.Interface.
type trackPoints []trackPoint

func (p trackPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p trackPoints) Len() int                      { return len(p) }
func (p trackPoints) Pivot(d kdtree.Dim) int {
	return plane{trackPoints: p, Dim: d}.Pivot()
}
func (p trackPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane is a fixed-dimension view over trackPoints for pivot selection.
type plane struct {
	kdtree.Dim
	trackPoints
}

func (p plane) Less(i, j int) bool {
	return p.trackPoints[i].vec[p.Dim] < p.trackPoints[j].vec[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.trackPoints = p.trackPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.trackPoints[i], p.trackPoints[j] = p.trackPoints[j], p.trackPoints[i]
}
