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

// Package index holds the in-memory track catalog and answers
// nearest-neighbor queries over normalized audio feature vectors.
//
// Concurrency model: copy-on-write snapshots. Writers serialize on a mutex,
// build a fresh catalog map and k-d tree, and publish them atomically.
// Readers load the current snapshot once and use it for the whole query, so
// a query always sees one consistent catalog version regardless of
// concurrent ingestion. Old snapshots are reclaimed by the garbage collector
// once the last reader drops them.
package index

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// FeatureIndex is the append-only catalog of candidate tracks. The zero
// value is not usable; create one with NewFeatureIndex.
type FeatureIndex struct {
	mu      sync.Mutex   // serializes writers
	current atomic.Value // holds *snapshot
}

// snapshot is one immutable catalog version. Both the map and the tree are
// rebuilt on every write and never mutated afterwards.
type snapshot struct {
	version uint64
	tracks  map[string]*model.Track
	tree    *kdtree.Tree
}

// NewFeatureIndex creates an empty catalog at version zero.
func NewFeatureIndex() *FeatureIndex {
	idx := &FeatureIndex{}
	idx.current.Store(&snapshot{tracks: make(map[string]*model.Track)})
	return idx
}

// Ingest adds a track to the catalog, or replaces the existing entry with
// the same id. The operation is idempotent.
func (x *FeatureIndex) Ingest(track *model.Track) {
	x.IngestBatch([]*model.Track{track})
}

// IngestBatch adds or replaces a set of tracks in a single new snapshot.
// Bulk loads (catalog warm-up, batch files) should prefer this over repeated
// Ingest calls since each call rebuilds the spatial tree once.
func (x *FeatureIndex) IngestBatch(tracks []*model.Track) {
	if len(tracks) == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	prev := x.current.Load().(*snapshot)
	next := make(map[string]*model.Track, len(prev.tracks)+len(tracks))
	for id, t := range prev.tracks {
		next[id] = t
	}
	for _, t := range tracks {
		if t == nil || t.Id == "" {
			continue
		}
		next[t.Id] = t
	}

	// Build the tree from an id-ordered slice so identical catalogs always
	// produce identical trees, regardless of map iteration order.
	ids := make([]string, 0, len(next))
	for id := range next {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	points := make(trackPoints, 0, len(next))
	for _, id := range ids {
		t := next[id]
		points = append(points, trackPoint{vec: t.Features.Vector(), track: t})
	}

	x.current.Store(&snapshot{
		version: prev.version + 1,
		tracks:  next,
		tree:    kdtree.New(points, false),
	})
}

// Get returns the track with the given id, or nil if absent.
func (x *FeatureIndex) Get(id string) *model.Track {
	snap := x.current.Load().(*snapshot)
	return snap.tracks[id]
}

// Search returns up to limit tracks whose title, artist, or genre contains
// the query, matched case-insensitively against the current catalog version.
// Results come back in ascending id order. A blank query matches nothing.
func (x *FeatureIndex) Search(query string, limit int) []*model.Track {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || limit <= 0 {
		return nil
	}

	snap := x.current.Load().(*snapshot)
	matched := make([]*model.Track, 0)
	for _, t := range snap.tracks {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Artist), needle) ||
			strings.Contains(strings.ToLower(t.Genre), needle) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Id < matched[j].Id })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Len returns the number of tracks in the current catalog version.
func (x *FeatureIndex) Len() int {
	snap := x.current.Load().(*snapshot)
	return len(snap.tracks)
}

// Version returns the current catalog version. Each successful write
// increments it by one.
func (x *FeatureIndex) Version() uint64 {
	snap := x.current.Load().(*snapshot)
	return snap.version
}

// Query returns up to k tracks nearest to the target point in normalized
// feature space, ordered by ascending Euclidean distance with ties broken by
// ascending track id. An empty catalog yields an empty result, not an error.
func (x *FeatureIndex) Query(target []float64, k int) []*model.TrackMatch {
	snap := x.current.Load().(*snapshot)
	if k <= 0 || len(snap.tracks) == 0 || len(target) != model.FeatureDims {
		return nil
	}

	if k > len(snap.tracks) {
		k = len(snap.tracks)
	}
	keeper := kdtree.NewNKeeper(k)
	snap.tree.NearestSet(keeper, trackPoint{vec: target})

	// The NKeeper admits an arbitrary winner among candidates tied at the
	// kth distance, so the id tie-break would depend on tree layout. Collect
	// every candidate within the kth distance instead, order the full set,
	// and cut back to k.
	maxDist := 0.0
	for _, c := range keeper.Heap {
		if _, ok := c.Comparable.(trackPoint); ok && c.Dist > maxDist {
			maxDist = c.Dist
		}
	}
	within := kdtree.NewDistKeeper(maxDist)
	snap.tree.NearestSet(within, trackPoint{vec: target})

	matches := make([]*model.TrackMatch, 0, len(within.Heap))
	for _, c := range within.Heap {
		point, ok := c.Comparable.(trackPoint)
		if !ok || point.track == nil {
			// The keeper seeds its heap with a boundary sentinel.
			continue
		}
		dist := math.Sqrt(c.Dist)
		matches = append(matches, &model.TrackMatch{
			Track:      point.track,
			Distance:   dist,
			Similarity: 1.0 / (1.0 + dist),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Track.Id < matches[j].Track.Id
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
