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

// Package signal normalizes raw per-channel emotion classifier outputs onto
// the shared emotion taxonomy. The adapter is a pure function over immutable
// configuration: the same raw signal always yields the same reading.
package signal

import (
	"math"
	"time"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// Adapter translates channel-specific classifier outputs into normalized
// ChannelReadings over the shared taxonomy. Construct one at startup from
// the loaded configuration and share it freely; it holds no mutable state.
type Adapter struct {
	taxonomy cloud.TaxonomyConfig
	channels map[string]cloud.ChannelConfig
}

// NewAdapter creates an adapter bound to the configured taxonomy and
// per-channel mapping tables.
func NewAdapter(config *cloud.Config) *Adapter {
	return &Adapter{
		taxonomy: config.Taxonomy,
		channels: config.Channels,
	}
}

// Normalize converts one raw classifier output into a ChannelReading whose
// scores are expressed over the shared taxonomy and sum to 1.
//
// A channel with no configured mapping table fails with ChannelMappingError,
// as does a raw label the table does not cover. Malformed input (confidence
// or scores outside [0, 1], NaN, or no scores at all) fails with
// InvalidSignalError. Both are local to the channel: the caller drops the
// channel and continues with whatever other readings it has.
func (a *Adapter) Normalize(raw model.RawSignal) (*model.ChannelReading, error) {
	channelCfg, ok := a.channels[string(raw.Channel)]
	if !ok {
		return nil, model.ChannelMappingError{Channel: raw.Channel}
	}
	if len(channelCfg.Mapping) == 0 {
		return nil, model.ChannelMappingError{Channel: raw.Channel}
	}

	if math.IsNaN(raw.Confidence) || raw.Confidence < 0 || raw.Confidence > 1 {
		return nil, model.InvalidSignalError{Channel: raw.Channel, Reason: "confidence outside [0, 1]"}
	}
	if len(raw.Scores) == 0 {
		return nil, model.InvalidSignalError{Channel: raw.Channel, Reason: "no scores supplied"}
	}

	// Translate every raw label through the channel's mapping table. Several
	// raw labels may fold onto one taxonomy label, in which case their mass
	// accumulates.
	scores := make(model.EmotionVector, len(a.taxonomy.Labels))
	for rawLabel, score := range raw.Scores {
		if math.IsNaN(score) || score < 0 || score > 1 {
			return nil, model.InvalidSignalError{Channel: raw.Channel, Reason: "score outside [0, 1] for label " + rawLabel}
		}
		mapped, ok := channelCfg.Mapping[rawLabel]
		if !ok {
			return nil, model.ChannelMappingError{Channel: raw.Channel, Label: rawLabel}
		}
		if !a.taxonomy.Contains(mapped) {
			return nil, model.ChannelMappingError{Channel: raw.Channel, Label: rawLabel}
		}
		scores[mapped] += score
	}

	if scores.Sum() <= 0 {
		return nil, model.InvalidSignalError{Channel: raw.Channel, Reason: "all scores are zero"}
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &model.ChannelReading{
		Channel:    raw.Channel,
		Scores:     scores.Normalized(),
		Confidence: raw.Confidence,
		Timestamp:  ts,
	}, nil
}
