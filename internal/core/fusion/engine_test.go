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

// Package fusion_test contains unit tests for the fusion engine, including
// the required properties: normalized output, confidence bounded by the
// best contributing channel, the no-signal failure, the zero-confidence
// neutral fallback, and reduced confidence under channel disagreement.
package fusion_test

import (
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/fusion"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func newTestConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Taxonomy = cloud.TaxonomyConfig{
		Labels:       []string{"angry", "disgust", "fear", "happy", "neutral", "sad", "surprise"},
		NeutralLabel: "neutral",
	}
	config.Channels["facial"] = cloud.ChannelConfig{ReliabilityPrior: 1.0, Priority: 0}
	config.Channels["voice"] = cloud.ChannelConfig{ReliabilityPrior: 0.9, Priority: 1}
	config.Channels["text"] = cloud.ChannelConfig{ReliabilityPrior: 0.8, Priority: 2}
	return config
}

func reading(channel model.Channel, scores model.EmotionVector, confidence float64) *model.ChannelReading {
	return &model.ChannelReading{
		Channel:    channel,
		Scores:     scores.Normalized(),
		Confidence: confidence,
	}
}

// TestFuseSingleChannel verifies the degenerate one-reading case: the fused
// vector matches the reading and confidence is reduced only by rounding, not
// by any phantom disagreement.
func TestFuseSingleChannel(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	state, err := engine.Fuse([]*model.ChannelReading{
		reading(model.ChannelFacial, model.EmotionVector{"happy": 0.8, "neutral": 0.2}, 0.9),
	})

	assert.NoError(t, err)
	assert.InDelta(t, 1.0, state.Scores.Sum(), model.Epsilon)
	assert.Equal(t, "happy", state.Dominant())
	assert.InDelta(t, 0.9, state.Confidence, model.Epsilon)
	assert.Equal(t, []model.Channel{model.ChannelFacial}, state.Channels)
}

// TestFuseEmptyFails verifies that fusing zero readings fails with the
// no-signal sentinel.
func TestFuseEmptyFails(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	_, err := engine.Fuse(nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoSignal))
}

// TestFuseAgreeingChannels verifies that agreeing channels reinforce the
// shared dominant label and keep confidence high.
func TestFuseAgreeingChannels(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	state, err := engine.Fuse([]*model.ChannelReading{
		reading(model.ChannelFacial, model.EmotionVector{"happy": 0.9, "neutral": 0.1}, 0.9),
		reading(model.ChannelVoice, model.EmotionVector{"happy": 0.8, "neutral": 0.2}, 0.8),
	})

	assert.NoError(t, err)
	assert.Equal(t, "happy", state.Dominant())
	assert.InDelta(t, 1.0, state.Scores.Sum(), model.Epsilon)
	assert.LessOrEqual(t, state.Confidence, 0.9)
	assert.Greater(t, state.Confidence, 0.7)
	// Facial carries the larger weight so it leads the channel list.
	assert.Equal(t, []model.Channel{model.ChannelFacial, model.ChannelVoice}, state.Channels)
}

// TestFuseDisagreementBlendsAndReducesConfidence covers the maximally
// disagreeing two-channel case: the fused vector must be a blend rather than
// either channel's vector, and confidence must drop strictly below the
// individual channel confidences.
func TestFuseDisagreementBlendsAndReducesConfidence(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	state, err := engine.Fuse([]*model.ChannelReading{
		reading(model.ChannelFacial, model.EmotionVector{"sad": 1.0}, 0.9),
		reading(model.ChannelText, model.EmotionVector{"happy": 1.0}, 0.9),
	})

	assert.NoError(t, err)
	assert.InDelta(t, 1.0, state.Scores.Sum(), model.Epsilon)
	// Blended, not single-channel dominant.
	assert.Greater(t, state.Scores["sad"], 0.0)
	assert.Greater(t, state.Scores["happy"], 0.0)
	assert.Less(t, state.Scores["sad"], 1.0)
	// Facial outweighs text through its reliability prior.
	assert.Greater(t, state.Scores["sad"], state.Scores["happy"])
	// Disagreement strictly reduces certainty.
	assert.Less(t, state.Confidence, 0.9)
}

// TestFuseConfidenceBounded verifies that the fused confidence never exceeds
// the maximum contributing channel confidence.
func TestFuseConfidenceBounded(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	state, err := engine.Fuse([]*model.ChannelReading{
		reading(model.ChannelFacial, model.EmotionVector{"happy": 1.0}, 0.6),
		reading(model.ChannelVoice, model.EmotionVector{"happy": 1.0}, 0.4),
		reading(model.ChannelText, model.EmotionVector{"happy": 1.0}, 0.2),
	})

	assert.NoError(t, err)
	assert.LessOrEqual(t, state.Confidence, 0.6)
}

// TestFuseZeroConfidenceNeutral verifies the all-zero-confidence fallback:
// zero fused confidence and the configured neutral label.
func TestFuseZeroConfidenceNeutral(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	state, err := engine.Fuse([]*model.ChannelReading{
		reading(model.ChannelFacial, model.EmotionVector{"sad": 1.0}, 0.0),
		reading(model.ChannelText, model.EmotionVector{"happy": 1.0}, 0.0),
	})

	assert.NoError(t, err)
	assert.Equal(t, 0.0, state.Confidence)
	assert.Equal(t, "neutral", state.Dominant())
	assert.Len(t, state.Channels, 2)
}

// TestFuseDeterministic verifies that reading order does not affect the
// fused result.
func TestFuseDeterministic(t *testing.T) {
	engine := fusion.NewEngine(newTestConfig())

	forward := []*model.ChannelReading{
		reading(model.ChannelFacial, model.EmotionVector{"happy": 0.7, "surprise": 0.3}, 0.8),
		reading(model.ChannelText, model.EmotionVector{"happy": 0.5, "neutral": 0.5}, 0.6),
	}
	reversed := []*model.ChannelReading{forward[1], forward[0]}

	a, err := engine.Fuse(forward)
	assert.NoError(t, err)
	b, err := engine.Fuse(reversed)
	assert.NoError(t, err)

	assert.Equal(t, a.Channels, b.Channels)
	assert.InDelta(t, a.Confidence, b.Confidence, model.Epsilon)
	for label, score := range a.Scores {
		assert.InDelta(t, score, b.Scores[label], model.Epsilon)
	}
}
