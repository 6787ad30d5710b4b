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

package workflow_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/commands"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
	test "github.com/jaycherian/gcp-go-mood-music/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// The cloud-backed tails of the pipelines (BigQuery writers, GCS download)
// need live service clients, so these tests exercise the in-memory heads of
// the chains end to end: message parse through validation into the feature
// index, and feedback parse into the profile service.

func TestIngestionChainPopulatesIndex(t *testing.T) {
	idx := index.NewFeatureIndex()

	chain := cor.NewBaseChain("ingestion-head")
	chain.AddCommand(commands.NewTrackMessageReader("track-message-reader"))
	chain.AddCommand(commands.NewTrackValidator("track-validator"))
	chain.AddCommand(commands.NewTrackIndexWriter("track-index-writer", idx))

	good := model.GetExampleTrack()
	bad := model.NewTrack("Broken", "No Features")
	payload, err := json.Marshal(&model.TrackBatch{Tracks: []*model.Track{good, bad}})
	assert.NoError(t, err)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, string(payload))

	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, 1, idx.Len())
	stored := idx.Get(good.Id)
	assert.NotNil(t, stored)
	assert.Equal(t, "Happy Vibes", stored.Title)

	// The validated batch flows out of the chain for the persistence tail.
	batch := chainCtx.Get(cor.CtxOut).(*model.TrackBatch)
	assert.Len(t, batch.Tracks, 1)
}

// TestIngestionChainHandlesTopicPayload runs the canned topic payload end
// to end: both canned tracks validate and land in the index under their
// assigned ids.
func TestIngestionChainHandlesTopicPayload(t *testing.T) {
	idx := index.NewFeatureIndex()

	chain := cor.NewBaseChain("ingestion-head")
	chain.AddCommand(commands.NewTrackMessageReader("track-message-reader"))
	chain.AddCommand(commands.NewTrackValidator("track-validator"))
	chain.AddCommand(commands.NewTrackIndexWriter("track-index-writer", idx))

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, test.GetTestTrackMessageText())

	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, 2, idx.Len())
	stored := idx.Get("9d2f5c1e-7b2a-5f3e-8c4d-1a2b3c4d5e6f")
	assert.NotNil(t, stored)
	assert.Equal(t, "Golden Hour", stored.Title)
	assert.NotNil(t, idx.Get(model.NewTrack("Low Tide", "Harbor Lights").Id))
}

func TestIngestionChainStopsOnEmptyBatch(t *testing.T) {
	idx := index.NewFeatureIndex()

	chain := cor.NewBaseChain("ingestion-head")
	chain.AddCommand(commands.NewTrackMessageReader("track-message-reader"))
	chain.AddCommand(commands.NewTrackValidator("track-validator"))
	chain.AddCommand(commands.NewTrackIndexWriter("track-index-writer", idx))

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, `{"tracks": []}`)

	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.Equal(t, 0, idx.Len())
}

func TestFeedbackChainUpdatesProfile(t *testing.T) {
	profiles := services.NewProfileService(nil, "", "", config.Feedback)

	chain := cor.NewBaseChain("feedback-head")
	chain.AddCommand(commands.NewFeedbackMessageReader("feedback-message-reader"))
	chain.AddCommand(commands.NewFeedbackApply("feedback-apply", profiles))

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, `{"user_id": "user-1", "track_id": "track-1", "signal": "liked"}`)

	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	interaction := chainCtx.Get(cor.CtxOut).(*model.Interaction)
	assert.Equal(t, "track-1", interaction.TrackId)
	assert.InDelta(t, config.Feedback.Alpha, profiles.Snapshot("user-1").Weight("track-1"), 1e-9)
}

// TestFeedbackChainAppliesListenedPayload runs the canned topic payload
// through the chain: a listen at 85% of the track maps to a 0.7 target, so
// the first update lands at alpha times that.
func TestFeedbackChainAppliesListenedPayload(t *testing.T) {
	profiles := services.NewProfileService(nil, "", "", config.Feedback)

	chain := cor.NewBaseChain("feedback-head")
	chain.AddCommand(commands.NewFeedbackMessageReader("feedback-message-reader"))
	chain.AddCommand(commands.NewFeedbackApply("feedback-apply", profiles))

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, test.GetTestFeedbackMessageText())

	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	interaction := chainCtx.Get(cor.CtxOut).(*model.Interaction)
	assert.Equal(t, "test-user-001", interaction.UserId)
	assert.InDelta(t, 0.7, interaction.Value, 1e-9)

	weight := profiles.Snapshot("test-user-001").Weight("9d2f5c1e-7b2a-5f3e-8c4d-1a2b3c4d5e6f")
	assert.InDelta(t, config.Feedback.Alpha*0.7, weight, 1e-9)
}

func TestFeedbackChainRejectsUnknownSignal(t *testing.T) {
	profiles := services.NewProfileService(nil, "", "", config.Feedback)

	chain := cor.NewBaseChain("feedback-head")
	chain.AddCommand(commands.NewFeedbackMessageReader("feedback-message-reader"))
	chain.AddCommand(commands.NewFeedbackApply("feedback-apply", profiles))

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, `{"user_id": "user-1", "track_id": "track-1", "signal": "loved"}`)

	chain.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.Empty(t, profiles.Snapshot("user-1").Weights)
}
