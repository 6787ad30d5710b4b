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

package services_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func happyState() *model.FusedState {
	return &model.FusedState{
		Scores:     model.EmotionVector{"happy": 0.8, "neutral": 0.2},
		Confidence: 0.9,
		Channels:   []model.Channel{model.ChannelFacial},
	}
}

// TestTargetPointBlendsCentroids verifies that the target point is the
// score-weighted blend of the configured emotion centroids.
func TestTargetPointBlendsCentroids(t *testing.T) {
	mapper := services.NewEmotionMapper(newMoodCatalog(), newEngineConfig())

	point := mapper.TargetPoint(happyState())

	// 0.8*happy + 0.2*neutral, tempo normalized by the tempo scale.
	assert.InDelta(t, 0.79, point[0], 1e-9)
	assert.InDelta(t, 0.75, point[1], 1e-9)
	assert.InDelta(t, 0.70, point[2], 1e-9)
	assert.InDelta(t, (0.8*150+0.2*110)/model.TempoScale, point[3], 1e-9)
}

// TestMapColdStart verifies the cold-start property: an empty profile still
// produces content-based candidates whenever the catalog is non-empty.
func TestMapColdStart(t *testing.T) {
	mapper := services.NewEmotionMapper(newMoodCatalog(), newEngineConfig())

	candidates := mapper.Map(happyState(), model.NewUserProfile("new-user"))

	assert.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.Equal(t, []string{model.StrategyContent}, c.Strategies)
		assert.Zero(t, c.CollabScore)
	}
}

// TestMapMergesStrategies verifies that a track proposed by both strategies
// collapses into one candidate carrying both labels and its collaborative
// score.
func TestMapMergesStrategies(t *testing.T) {
	mapper := services.NewEmotionMapper(newMoodCatalog(), newEngineConfig())

	profile := model.NewUserProfile("fan")
	profile.Weights = append(profile.Weights, &model.TrackWeight{TrackId: "energetic-01", Weight: 0.8})

	candidates := mapper.Map(happyState(), profile)

	var energetic *model.Candidate
	for _, c := range candidates {
		if c.Track.Id == "energetic-01" {
			energetic = c
		}
	}
	assert.NotNil(t, energetic)
	assert.Contains(t, energetic.Strategies, model.StrategyContent)
	assert.Contains(t, energetic.Strategies, model.StrategyCollaborative)
	assert.Equal(t, 0.8, energetic.CollabScore)
	// No duplicate entry for the merged track.
	count := 0
	for _, c := range candidates {
		if c.Track.Id == "energetic-01" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// TestMapCollaborativeRespectsEmotion verifies that a heavily weighted track
// far from the current emotional target is filtered out of the collaborative
// picks, and that weights referencing tracks gone from the catalog are
// skipped rather than failing the call.
func TestMapCollaborativeRespectsEmotion(t *testing.T) {
	config := newEngineConfig()
	config.Recommender.CandidateK = 1 // keep content picks away from calm
	config.Recommender.CollaborativeTolerance = 0.4
	mapper := services.NewEmotionMapper(newMoodCatalog(), config)

	profile := model.NewUserProfile("sleepy")
	profile.Weights = append(profile.Weights,
		&model.TrackWeight{TrackId: "calm-01", Weight: 0.95},
		&model.TrackWeight{TrackId: "deleted-track", Weight: 0.9},
	)

	candidates := mapper.Map(happyState(), profile)

	for _, c := range candidates {
		assert.NotEqual(t, "calm-01", c.Track.Id, "calm favorite must not override a happy state")
		assert.NotEqual(t, "deleted-track", c.Track.Id)
	}
}

// TestMapEmptyCatalog verifies that an empty catalog yields an empty
// candidate set without error.
func TestMapEmptyCatalog(t *testing.T) {
	mapper := services.NewEmotionMapper(newEmptyIndex(), newEngineConfig())
	candidates := mapper.Map(happyState(), model.NewUserProfile("anyone"))
	assert.Empty(t, candidates)
}
