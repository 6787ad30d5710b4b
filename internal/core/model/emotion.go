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

// Package model defines the core data structures for the application. This
// file contains the emotion-domain types that flow through the recommendation
// pipeline: per-channel classifier readings, the normalized emotion vector,
// and the single fused emotion state the mapper consumes. None of these types
// are persisted; they live only for the duration of one recommendation call.
package model

import (
	"math"
	"sort"
	"time"
)

// Channel identifies one emotion-sensing modality.
type Channel string

const (
	ChannelFacial Channel = "facial"
	ChannelVoice  Channel = "voice"
	ChannelText   Channel = "text"
)

// EmotionVector maps emotion labels from the configured taxonomy to a
// probability-like score in [0, 1]. A vector produced by the signal adapter or
// the fusion engine always sums to 1 within Epsilon unless every score is zero.
type EmotionVector map[string]float64

// Epsilon is the tolerance applied when checking that a vector is normalized.
const Epsilon = 1e-6

// Sum returns the total score mass of the vector.
func (v EmotionVector) Sum() float64 {
	total := 0.0
	for _, s := range v {
		total += s
	}
	return total
}

// Normalized returns a copy of the vector scaled so its scores sum to 1.
// A vector with no mass is returned unchanged; callers that need a usable
// state for the all-zero case substitute the configured neutral label.
func (v EmotionVector) Normalized() EmotionVector {
	total := v.Sum()
	out := make(EmotionVector, len(v))
	if total <= 0 {
		for label, s := range v {
			out[label] = s
		}
		return out
	}
	for label, s := range v {
		out[label] = s / total
	}
	return out
}

// Dominant returns the label with the highest score. Ties are broken by
// lexicographic label order so the result is deterministic for identical
// inputs. An empty vector returns the empty string.
func (v EmotionVector) Dominant() string {
	labels := make([]string, 0, len(v))
	for label := range v {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	best := ""
	bestScore := math.Inf(-1)
	for _, label := range labels {
		if v[label] > bestScore {
			best = label
			bestScore = v[label]
		}
	}
	return best
}

// L1Distance returns the L1 (taxicab) distance between two vectors over the
// union of their labels. Two normalized vectors are at most 2 apart.
func (v EmotionVector) L1Distance(other EmotionVector) float64 {
	seen := make(map[string]bool, len(v)+len(other))
	dist := 0.0
	for label, s := range v {
		dist += math.Abs(s - other[label])
		seen[label] = true
	}
	for label, s := range other {
		if !seen[label] {
			dist += s
		}
	}
	return dist
}

// Clone returns an independent copy of the vector.
func (v EmotionVector) Clone() EmotionVector {
	out := make(EmotionVector, len(v))
	for label, s := range v {
		out[label] = s
	}
	return out
}

// ChannelReading is one normalized emotion observation from a single channel.
// Readings are immutable once created and are discarded after fusion; they are
// never persisted.
type ChannelReading struct {
	Channel    Channel       `json:"channel"`
	Scores     EmotionVector `json:"scores"`
	Confidence float64       `json:"confidence"`
	Timestamp  time.Time     `json:"timestamp"`
}

// FusedState is the single emotion state produced by the fusion engine for
// one recommendation call. Confidence is bounded above by the maximum
// confidence of the contributing channels.
type FusedState struct {
	Scores     EmotionVector `json:"scores"`
	Confidence float64       `json:"confidence"`
	Channels   []Channel     `json:"channels"`
}

// Dominant returns the strongest emotion label of the fused state.
func (f *FusedState) Dominant() string {
	return f.Scores.Dominant()
}

// RawSignal is the untyped classifier output a channel delivers to the signal
// adapter. Scores are keyed by the classifier's native labels, which the
// adapter translates onto the shared taxonomy via the configured per-channel
// mapping table.
type RawSignal struct {
	Channel    Channel            `json:"channel"`
	Scores     map[string]float64 `json:"scores"`
	Confidence float64            `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp,omitempty"`
}
