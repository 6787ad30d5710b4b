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

// This file defines the HybridRanker, which merges the mapper's candidates
// into a final ordered recommendation list.
package services

import (
	"sort"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"gonum.org/v1/gonum/floats"
)

// HybridRanker scores and orders candidates. It is stateless and safe for
// concurrent use; determinism for identical inputs is part of its contract.
type HybridRanker struct {
	Config cloud.RecommenderConfig
}

// NewHybridRanker creates a ranker with the configured scoring weights.
func NewHybridRanker(config *cloud.Config) *HybridRanker {
	return &HybridRanker{Config: config.Recommender}
}

// Rank produces an ordered RecommendationResult of at most count entries.
//
// Each candidate's base score is the weighted sum of its content similarity
// and the user's collaborative weight for it (zero when absent). Selection
// is a greedy pass, highest score first: after each pick, remaining
// candidates within the configured feature-distance threshold of any
// selected track have their score discounted once, so near-duplicates sink
// instead of filling adjacent slots. All ties break by ascending track id.
func (r *HybridRanker) Rank(candidates []*model.Candidate, fused *model.FusedState, profile *model.UserProfile, count int) *model.RecommendationResult {
	if count <= 0 {
		count = r.Config.DefaultCount
	}
	result := &model.RecommendationResult{
		Emotion:    fused.Dominant(),
		Confidence: fused.Confidence,
		Items:      make([]*model.Recommendation, 0, count),
	}
	if profile != nil {
		result.UserId = profile.UserId
	}
	if len(candidates) == 0 {
		return result
	}

	type scored struct {
		candidate  *model.Candidate
		score      float64
		discounted bool
	}
	remaining := make([]*scored, 0, len(candidates))
	for _, c := range candidates {
		// The authoritative collaborative signal is the profile weight,
		// which may be negative for disliked tracks. The mapper's score
		// only fills in when the snapshot has no entry for the track.
		collab := c.CollabScore
		if profile != nil {
			if w := profile.Weight(c.Track.Id); w != 0 {
				collab = w
			}
		}
		remaining = append(remaining, &scored{
			candidate: c,
			score:     r.Config.SimilarityWeight*c.Similarity + r.Config.CollaborativeWeight*collab,
		})
	}

	for len(result.Items) < count && len(remaining) > 0 {
		sort.SliceStable(remaining, func(i, j int) bool {
			if remaining[i].score != remaining[j].score {
				return remaining[i].score > remaining[j].score
			}
			return remaining[i].candidate.Track.Id < remaining[j].candidate.Track.Id
		})
		pick := remaining[0]
		remaining = remaining[1:]

		result.Items = append(result.Items, &model.Recommendation{
			Track: pick.candidate.Track,
			Score: pick.score,
			Explanation: model.Explanation{
				Strategies: dedupe(pick.candidate.Strategies),
				Emotion:    result.Emotion,
			},
		})
		pickVec := pick.candidate.Track.Features.Vector()

		// One-time diversity discount for anything too close to a selected
		// track.
		if r.Config.DiversityThreshold > 0 {
			for _, s := range remaining {
				if s.discounted {
					continue
				}
				if floats.Distance(s.candidate.Track.Features.Vector(), pickVec, 2) < r.Config.DiversityThreshold {
					s.score *= r.Config.DiversityDiscount
					s.discounted = true
				}
			}
		}
	}
	return result
}

// dedupe returns the strategies with duplicates removed, preserving first
// occurrence order.
func dedupe(strategies []string) []string {
	seen := make(map[string]bool, len(strategies))
	out := make([]string, 0, len(strategies))
	for _, s := range strategies {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
