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

// Package services_test contains unit tests for the engine services. The
// whole recommendation path is pure in-memory computation, so these tests
// run without any cloud clients: the profile service is constructed with a
// nil BigQuery client and only its in-memory operations are exercised.
package services_test

import (
	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
)

// newEngineConfig builds the in-memory equivalent of the test TOML config:
// the shared taxonomy, the three channels, the emotion centroid table, and
// the recommender and feedback constants.
func newEngineConfig() *cloud.Config {
	config := cloud.NewConfig()
	config.Taxonomy = cloud.TaxonomyConfig{
		Labels:       []string{"angry", "disgust", "fear", "happy", "neutral", "sad", "surprise"},
		NeutralLabel: "neutral",
	}

	identity := map[string]string{
		"angry": "angry", "disgust": "disgust", "fear": "fear",
		"happy": "happy", "neutral": "neutral", "sad": "sad", "surprise": "surprise",
	}
	config.Channels["facial"] = cloud.ChannelConfig{ReliabilityPrior: 1.0, Priority: 0, Mapping: identity}
	config.Channels["voice"] = cloud.ChannelConfig{ReliabilityPrior: 0.9, Priority: 1, Mapping: identity}
	config.Channels["text"] = cloud.ChannelConfig{ReliabilityPrior: 0.8, Priority: 2, Mapping: identity}

	config.EmotionTargets = map[string]cloud.EmotionTarget{
		"happy":    {Valence: 0.85, Energy: 0.8, Danceability: 0.75, Tempo: 150},
		"surprise": {Valence: 0.7, Energy: 0.75, Danceability: 0.7, Tempo: 135},
		"angry":    {Valence: 0.3, Energy: 0.85, Danceability: 0.4, Tempo: 140},
		"fear":     {Valence: 0.25, Energy: 0.5, Danceability: 0.3, Tempo: 95},
		"disgust":  {Valence: 0.3, Energy: 0.4, Danceability: 0.35, Tempo: 90},
		"sad":      {Valence: 0.2, Energy: 0.25, Danceability: 0.3, Tempo: 75},
		"neutral":  {Valence: 0.55, Energy: 0.55, Danceability: 0.5, Tempo: 110},
	}

	config.Recommender = cloud.RecommenderConfig{
		CandidateK:             20,
		CollaborativeTopN:      10,
		CollaborativeTolerance: 0.6,
		SimilarityWeight:       0.7,
		CollaborativeWeight:    0.3,
		DiversityThreshold:     0.25,
		DiversityDiscount:      0.5,
		DefaultCount:           10,
	}
	config.Feedback = cloud.FeedbackConfig{
		Alpha:         0.3,
		LikedTarget:   1.0,
		SkippedTarget: -1.0,
		HistoryLimit:  100,
	}
	return config
}

func newTrack(id string, valence, energy, danceability, tempo float64) *model.Track {
	return &model.Track{
		Id:    id,
		Title: "track " + id,
		Features: model.AudioFeatures{
			Valence:      valence,
			Energy:       energy,
			Danceability: danceability,
			Tempo:        tempo,
		},
	}
}

// newMoodCatalog loads the three-mood catalog from the engine's acceptance
// scenario: calm, energetic, and neutral tracks.
func newMoodCatalog() *index.FeatureIndex {
	idx := index.NewFeatureIndex()
	idx.IngestBatch([]*model.Track{
		newTrack("calm-01", 0.3, 0.2, 0.3, 70),
		newTrack("energetic-01", 0.8, 0.9, 0.8, 160),
		newTrack("neutral-01", 0.5, 0.5, 0.5, 110),
	})
	return idx
}

func newEmptyIndex() *index.FeatureIndex {
	return index.NewFeatureIndex()
}

func newTestRecommender(idx *index.FeatureIndex) (*services.Recommender, *services.ProfileService) {
	config := newEngineConfig()
	profiles := services.NewProfileService(nil, "", "", config.Feedback)
	return services.NewRecommender(config, idx, profiles), profiles
}

func happyFacialSignal() model.RawSignal {
	return model.RawSignal{
		Channel:    model.ChannelFacial,
		Scores:     map[string]float64{"happy": 0.8, "neutral": 0.2},
		Confidence: 0.9,
	}
}
