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

// This file defines the EmotionMapper, which translates a fused emotion
// state into a candidate set of tracks by running two sub-strategies and
// merging their output.
package services

import (
	"sort"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"gonum.org/v1/gonum/floats"
)

// EmotionMapper proposes candidate tracks for a fused emotion state. It is
// stateless apart from its references to the feature index and immutable
// configuration, and safe for concurrent use.
type EmotionMapper struct {
	Index   *index.FeatureIndex
	Targets map[string]cloud.EmotionTarget
	Config  cloud.RecommenderConfig
}

// NewEmotionMapper creates a mapper bound to the feature index and the
// configured emotion-to-feature centroid table.
func NewEmotionMapper(idx *index.FeatureIndex, config *cloud.Config) *EmotionMapper {
	return &EmotionMapper{
		Index:   idx,
		Targets: config.EmotionTargets,
		Config:  config.Recommender,
	}
}

// TargetPoint translates a fused state into a point in normalized feature
// space: the configured per-emotion centroids blended by the fused vector's
// weights. Labels without a configured centroid contribute nothing; if no
// label has one, the blend falls back to the dominant label's centroid or,
// failing that, the center of the space.
func (m *EmotionMapper) TargetPoint(fused *model.FusedState) []float64 {
	point := make([]float64, model.FeatureDims)
	totalWeight := 0.0
	for label, score := range fused.Scores {
		target, ok := m.Targets[label]
		if !ok || score <= 0 {
			continue
		}
		vec := model.AudioFeatures{
			Valence:      target.Valence,
			Energy:       target.Energy,
			Danceability: target.Danceability,
			Tempo:        target.Tempo,
		}.Vector()
		floats.AddScaled(point, score, vec)
		totalWeight += score
	}
	if totalWeight <= 0 {
		// No centroid matched the fused vector. Aim for the middle of the
		// space so the query still returns something sensible.
		for i := range point {
			point[i] = 0.5
		}
		return point
	}
	floats.Scale(1.0/totalWeight, point)
	return point
}

// Map returns the merged candidate set for a fused state and a profile
// snapshot. Both strategies always run; an empty profile just leaves the
// collaborative side empty (cold start), it never fails the call.
func (m *EmotionMapper) Map(fused *model.FusedState, profile *model.UserProfile) []*model.Candidate {
	target := m.TargetPoint(fused)

	merged := make(map[string]*model.Candidate)

	// Content-based: nearest neighbors of the target point.
	k := m.Config.CandidateK
	if k <= 0 {
		k = 20
	}
	for _, match := range m.Index.Query(target, k) {
		merged[match.Track.Id] = &model.Candidate{
			Track:      match.Track,
			Similarity: match.Similarity,
			Strategies: []string{model.StrategyContent},
		}
	}

	// Collaborative: the profile's highest-weighted tracks, kept only when
	// their own features sit within tolerance of the current target so a
	// past favorite cannot override the present emotion.
	for _, weight := range m.topWeights(profile) {
		track := m.Index.Get(weight.TrackId)
		if track == nil {
			// The weight references a track no longer in the catalog.
			continue
		}
		dist := floats.Distance(track.Features.Vector(), target, 2)
		if m.Config.CollaborativeTolerance > 0 && dist > m.Config.CollaborativeTolerance {
			continue
		}
		similarity := 1.0 / (1.0 + dist)
		if existing, ok := merged[track.Id]; ok {
			// Union keeps the best score from each strategy.
			if similarity > existing.Similarity {
				existing.Similarity = similarity
			}
			if weight.Weight > existing.CollabScore {
				existing.CollabScore = weight.Weight
			}
			existing.Strategies = append(existing.Strategies, model.StrategyCollaborative)
		} else {
			merged[track.Id] = &model.Candidate{
				Track:       track,
				Similarity:  similarity,
				CollabScore: weight.Weight,
				Strategies:  []string{model.StrategyCollaborative},
			}
		}
	}

	candidates := make([]*model.Candidate, 0, len(merged))
	for _, c := range merged {
		candidates = append(candidates, c)
	}
	// Deterministic order for the ranker regardless of map iteration.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Track.Id < candidates[j].Track.Id
	})
	return candidates
}

// topWeights returns the profile's positive preference weights, strongest
// first, capped at the configured collaborative fan-out.
func (m *EmotionMapper) topWeights(profile *model.UserProfile) []*model.TrackWeight {
	if profile == nil || len(profile.Weights) == 0 {
		return nil
	}
	weights := make([]*model.TrackWeight, 0, len(profile.Weights))
	for _, w := range profile.Weights {
		if w.Weight > 0 {
			weights = append(weights, w)
		}
	}
	sort.Slice(weights, func(i, j int) bool {
		if weights[i].Weight != weights[j].Weight {
			return weights[i].Weight > weights[j].Weight
		}
		return weights[i].TrackId < weights[j].TrackId
	})
	topN := m.Config.CollaborativeTopN
	if topN > 0 && len(weights) > topN {
		weights = weights[:topN]
	}
	return weights
}
