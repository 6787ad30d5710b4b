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

// Package model_test contains unit tests for the data models defined in the
// model package. This file tests the constructors and invariants of the
// persistent models: catalog tracks and user profiles.
package model_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestNewTrack verifies that the track id is a UUIDv5 hash of artist and
// title, so the same catalog row always resolves to the same entry.
func TestNewTrack(t *testing.T) {
	track := model.NewTrack("Night Drive", "The Headlights")

	generatedID := uuid.NewSHA1(uuid.NameSpaceURL,
		[]byte(fmt.Sprintf("%s|%s", "The Headlights", "Night Drive")))

	assert.Equal(t, generatedID.String(), track.Id)
	assert.WithinDuration(t, time.Now(), track.CreateDate, time.Second)

	// A second construction with the same artist and title is the same entry.
	again := model.NewTrack("Night Drive", "The Headlights")
	assert.Equal(t, track.Id, again.Id)
}

// TestFeatureVector verifies the fixed dimension order and the tempo
// normalization, including the clamp for tracks faster than the scale.
func TestFeatureVector(t *testing.T) {
	features := model.AudioFeatures{
		Valence:      0.9,
		Energy:       0.8,
		Danceability: 0.7,
		Tempo:        100,
	}

	vec := features.Vector()
	assert.Equal(t, model.FeatureDims, len(vec))
	assert.InDelta(t, 0.9, vec[0], 1e-9)
	assert.InDelta(t, 0.8, vec[1], 1e-9)
	assert.InDelta(t, 0.7, vec[2], 1e-9)
	assert.InDelta(t, 0.5, vec[3], 1e-9)

	features.Tempo = 500
	assert.InDelta(t, 1.0, features.Vector()[3], 1e-9)
}

// TestNewUserProfile verifies that a fresh profile starts empty.
func TestNewUserProfile(t *testing.T) {
	profile := model.NewUserProfile("user-1")

	assert.Equal(t, "user-1", profile.UserId)
	assert.Equal(t, 0, len(profile.Weights))
	assert.Equal(t, 0, len(profile.History))
	assert.InDelta(t, 0.0, profile.Weight("anything"), 1e-9)
}

// TestProfileClone verifies that a clone is fully detached from its source.
func TestProfileClone(t *testing.T) {
	profile := model.NewUserProfile("user-1")
	profile.Weights = append(profile.Weights, &model.TrackWeight{TrackId: "track-1", Weight: 0.5})
	profile.History = append(profile.History, &model.Interaction{
		UserId:  "user-1",
		TrackId: "track-1",
		Signal:  string(model.FeedbackLiked),
		Value:   1.0,
	})

	clone := profile.Clone()
	clone.Weights[0].Weight = -1.0
	clone.History[0].Value = 0.0

	assert.InDelta(t, 0.5, profile.Weight("track-1"), 1e-9)
	assert.InDelta(t, 1.0, profile.History[0].Value, 1e-9)
}
