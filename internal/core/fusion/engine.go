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

// Package fusion combines per-channel emotion readings into a single fused
// emotion state. The engine tolerates any non-empty subset of channels;
// weighting, priors, and the neutral fallback all come from immutable
// configuration loaded at startup.
package fusion

import (
	"log/slog"
	"sort"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// Engine fuses channel readings into one FusedState. It is stateless and
// safe for concurrent use.
type Engine struct {
	taxonomy cloud.TaxonomyConfig
	channels map[string]cloud.ChannelConfig
}

// NewEngine creates a fusion engine bound to the configured taxonomy and
// per-channel reliability priors.
func NewEngine(config *cloud.Config) *Engine {
	return &Engine{
		taxonomy: config.Taxonomy,
		channels: config.Channels,
	}
}

// Fuse combines one or more channel readings into a FusedState.
//
// Each reading contributes with weight equal to its own confidence times the
// channel's configured reliability prior. The fused vector is the weighted
// average of the reading vectors, renormalized to sum to 1. The fused
// confidence is the weighted mean of the contributing confidences, scaled
// down by an agreement factor so maximal disagreement between channels
// halves the certainty; it never exceeds the highest individual confidence.
//
// Zero readings fail with ErrNoSignal. When every contributing weight is
// zero the engine cannot prefer any channel, so the fused state collapses to
// the configured neutral label with zero confidence.
func (e *Engine) Fuse(readings []*model.ChannelReading) (*model.FusedState, error) {
	if len(readings) == 0 {
		return nil, model.ErrNoSignal
	}

	// Order readings by descending weight, then by the configured channel
	// priority, then by channel name. The weighted average itself is order
	// independent; the ordering fixes the contributing-channel list and
	// makes equal-weight inputs deterministic.
	type weighted struct {
		reading  *model.ChannelReading
		weight   float64
		priority int
	}
	contributors := make([]weighted, 0, len(readings))
	for _, r := range readings {
		cfg, ok := e.channels[string(r.Channel)]
		if !ok {
			// Readings normally arrive through the adapter, which rejects
			// unconfigured channels, so this is unexpected input.
			slog.Warn("dropping reading from unconfigured channel", "channel", r.Channel)
			continue
		}
		contributors = append(contributors, weighted{
			reading:  r,
			weight:   r.Confidence * cfg.ReliabilityPrior,
			priority: cfg.Priority,
		})
	}
	if len(contributors) == 0 {
		return nil, model.ErrNoSignal
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		if contributors[i].weight != contributors[j].weight {
			return contributors[i].weight > contributors[j].weight
		}
		if contributors[i].priority != contributors[j].priority {
			return contributors[i].priority < contributors[j].priority
		}
		return contributors[i].reading.Channel < contributors[j].reading.Channel
	})

	channels := make([]model.Channel, 0, len(contributors))
	totalWeight := 0.0
	for _, c := range contributors {
		channels = append(channels, c.reading.Channel)
		totalWeight += c.weight
	}

	if totalWeight <= 0 {
		// Every channel reported zero confidence. No channel can be
		// preferred, so fall back to the configured neutral emotion.
		scores := make(model.EmotionVector, 1)
		scores[e.taxonomy.NeutralLabel] = 1.0
		return &model.FusedState{
			Scores:     scores,
			Confidence: 0.0,
			Channels:   channels,
		}, nil
	}

	fused := make(model.EmotionVector, len(e.taxonomy.Labels))
	for _, c := range contributors {
		for label, score := range c.reading.Scores {
			fused[label] += c.weight * score
		}
	}
	fused = fused.Normalized()

	// Agreement is 1 minus the mean halved L1 distance from each reading to
	// the fused vector. Identical readings give agreement 1; maximally
	// disjoint readings drive it toward 0.5 and below.
	disagreement := 0.0
	maxConfidence := 0.0
	weightedConfidence := 0.0
	for _, c := range contributors {
		disagreement += 0.5 * c.reading.Scores.L1Distance(fused)
		weightedConfidence += c.weight * c.reading.Confidence
		if c.reading.Confidence > maxConfidence {
			maxConfidence = c.reading.Confidence
		}
	}
	agreement := 1.0 - disagreement/float64(len(contributors))
	if agreement < 0 {
		agreement = 0
	}

	confidence := (weightedConfidence / totalWeight) * agreement
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return &model.FusedState{
		Scores:     fused,
		Confidence: confidence,
		Channels:   channels,
	}, nil
}
