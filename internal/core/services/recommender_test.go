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

// End-to-end tests for the recommender facade over the pure in-memory path:
// adapter, fusion, mapper, and ranker together, including the acceptance
// scenarios for the engine.
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestRecommendHappyScenario is the engine's acceptance scenario: a happy
// facial reading against the three-mood catalog must rank the energetic
// track above neutral at count 2, excluding calm.
func TestRecommendHappyScenario(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())

	result, err := recommender.Recommend(context.Background(), "u1",
		[]model.RawSignal{happyFacialSignal()}, 2)

	assert.NoError(t, err)
	assert.Equal(t, "u1", result.UserId)
	assert.Equal(t, "happy", result.Emotion)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "energetic-01", result.Items[0].Track.Id)
	assert.Equal(t, "neutral-01", result.Items[1].Track.Id)
	for _, item := range result.Items {
		assert.Contains(t, item.Explanation.Strategies, model.StrategyContent)
		assert.Equal(t, "happy", item.Explanation.Emotion)
	}
}

// TestRecommendNoSignal verifies that a call with no usable channel fails
// with the no-signal sentinel, and that bad channels are absorbed as long as
// one good one remains.
func TestRecommendNoSignal(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())
	ctx := context.Background()

	_, err := recommender.Recommend(ctx, "u1", nil, 2)
	assert.True(t, errors.Is(err, model.ErrNoSignal))

	// Every supplied signal is rejected by the adapter.
	_, err = recommender.Recommend(ctx, "u1", []model.RawSignal{
		{Channel: "gesture", Scores: map[string]float64{"wave": 1}, Confidence: 0.5},
	}, 2)
	assert.True(t, errors.Is(err, model.ErrNoSignal))

	// A bad channel beside a good one is dropped, not fatal.
	result, err := recommender.Recommend(ctx, "u1", []model.RawSignal{
		{Channel: "gesture", Scores: map[string]float64{"wave": 1}, Confidence: 0.5},
		happyFacialSignal(),
	}, 2)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Items)
}

// TestRecommendColdStart verifies that a user with no history still gets a
// non-empty result from a non-empty catalog.
func TestRecommendColdStart(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())

	result, err := recommender.Recommend(context.Background(), "brand-new-user",
		[]model.RawSignal{happyFacialSignal()}, 3)

	assert.NoError(t, err)
	assert.NotEmpty(t, result.Items)
}

// TestRecommendEmptyCatalog verifies that an empty catalog yields an empty
// result, not an error.
func TestRecommendEmptyCatalog(t *testing.T) {
	recommender, _ := newTestRecommender(newEmptyIndex())

	result, err := recommender.Recommend(context.Background(), "u1",
		[]model.RawSignal{happyFacialSignal()}, 3)

	assert.NoError(t, err)
	assert.Empty(t, result.Items)
}

// TestRecommendFeedbackShapesRanking verifies the loop closure: skipping the
// top track repeatedly drags its weight negative and demotes it on the next
// call.
func TestRecommendFeedbackShapesRanking(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())
	ctx := context.Background()
	signals := []model.RawSignal{happyFacialSignal()}

	before, err := recommender.Recommend(ctx, "u1", signals, 2)
	assert.NoError(t, err)
	assert.Equal(t, "energetic-01", before.Items[0].Track.Id)

	for i := 0; i < 10; i++ {
		_, err := recommender.Record(ctx, &model.FeedbackEvent{
			UserId: "u1", TrackId: "energetic-01", Signal: model.FeedbackSkipped,
		})
		assert.NoError(t, err)
	}

	after, err := recommender.Recommend(ctx, "u1", signals, 2)
	assert.NoError(t, err)
	assert.NotEqual(t, "energetic-01", after.Items[0].Track.Id)
}

// TestRecommendDisagreementStillServes verifies that maximally disagreeing
// channels produce a blended state that still yields recommendations, with
// reduced confidence reported on the result.
func TestRecommendDisagreementStillServes(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())

	result, err := recommender.Recommend(context.Background(), "u1", []model.RawSignal{
		{Channel: model.ChannelFacial, Scores: map[string]float64{"sad": 1}, Confidence: 0.9},
		{Channel: model.ChannelText, Scores: map[string]float64{"happy": 1}, Confidence: 0.9},
	}, 2)

	assert.NoError(t, err)
	assert.NotEmpty(t, result.Items)
	assert.Less(t, result.Confidence, 0.9)
}

// TestStatsCountServedEmotions verifies the per-emotion serving counters
// behind the stats route.
func TestStatsCountServedEmotions(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := recommender.Recommend(ctx, "u1", []model.RawSignal{happyFacialSignal()}, 1)
		assert.NoError(t, err)
	}

	stats := recommender.Stats()
	assert.Equal(t, int64(3), stats["happy"])
}

// TestGeneratePlaylistSingleEmotion verifies that an explicit emotion
// request ranks through the same path as a live signal: a happy playlist
// over the three-mood catalog leads with the energetic track.
func TestGeneratePlaylistSingleEmotion(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())

	result, err := recommender.GeneratePlaylist(context.Background(), "u1", []string{"happy"}, 2)

	assert.NoError(t, err)
	assert.Equal(t, "u1", result.UserId)
	assert.Equal(t, "happy", result.Emotion)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "energetic-01", result.Items[0].Track.Id)
}

// TestGeneratePlaylistBlendsEmotions verifies that multiple requested
// emotions blend into one target: happy and sad together land nearest the
// middle of the catalog, and the dominant label of the even blend is the
// lexicographically first one.
func TestGeneratePlaylistBlendsEmotions(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())

	result, err := recommender.GeneratePlaylist(context.Background(), "u1", []string{"sad", "happy"}, 1)

	assert.NoError(t, err)
	assert.Equal(t, "happy", result.Emotion)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, "neutral-01", result.Items[0].Track.Id)
}

// TestGeneratePlaylistRejectsBadInput verifies the input contract: labels
// outside the taxonomy fail, and an empty label list is the no-signal case.
func TestGeneratePlaylistRejectsBadInput(t *testing.T) {
	recommender, _ := newTestRecommender(newMoodCatalog())
	ctx := context.Background()

	_, err := recommender.GeneratePlaylist(ctx, "u1", []string{"melancholy"}, 2)
	assert.Error(t, err)

	_, err = recommender.GeneratePlaylist(ctx, "u1", nil, 2)
	assert.True(t, errors.Is(err, model.ErrNoSignal))
}
