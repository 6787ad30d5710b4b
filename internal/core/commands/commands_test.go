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

package commands_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/commands"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
	test "github.com/jaycherian/gcp-go-mood-music/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// newChainContext builds a chain context with the payload staged as input,
// the way the Pub/Sub listener does for a received message.
func newChainContext(payload string) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, payload)
	return ctx
}

func validBatchJSON(t *testing.T) string {
	t.Helper()
	batch := &model.TrackBatch{
		Source: "unit-test",
		Tracks: []*model.Track{model.GetExampleTrack()},
	}
	data, err := json.Marshal(batch)
	assert.NoError(t, err)
	return string(data)
}

func TestTrackMessageReaderParsesBatch(t *testing.T) {
	cmd := commands.NewTrackMessageReader("track-message-reader")
	ctx := newChainContext(validBatchJSON(t))

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	batch := ctx.Get(cmd.GetOutputParam()).(*model.TrackBatch)
	assert.Len(t, batch.Tracks, 1)
	assert.Equal(t, "Happy Vibes", batch.Tracks[0].Title)
	assert.NotEmpty(t, batch.Tracks[0].Id)
}

func TestTrackMessageReaderParsesTopicPayload(t *testing.T) {
	cmd := commands.NewTrackMessageReader("track-message-reader")
	ctx := newChainContext(test.GetTestTrackMessageText())

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	batch := ctx.Get(cmd.GetOutputParam()).(*model.TrackBatch)
	assert.Equal(t, "test-label-feed", batch.Source)
	assert.Len(t, batch.Tracks, 2)

	// The first track arrives with an id and keeps it; the second gets the
	// deterministic artist-and-title id.
	assert.Equal(t, "9d2f5c1e-7b2a-5f3e-8c4d-1a2b3c4d5e6f", batch.Tracks[0].Id)
	assert.Equal(t, model.NewTrack("Low Tide", "Harbor Lights").Id, batch.Tracks[1].Id)
}

func TestTrackMessageReaderAssignsDeterministicIds(t *testing.T) {
	payload := `{"tracks": [{"title": "Song A", "artist": "Band B",
		"features": {"valence": 0.5, "energy": 0.5, "danceability": 0.5, "tempo": 120}}]}`

	cmd := commands.NewTrackMessageReader("track-message-reader")

	first := newChainContext(payload)
	cmd.Execute(first)
	second := newChainContext(payload)
	cmd.Execute(second)

	assert.False(t, first.HasErrors())
	a := first.Get(cmd.GetOutputParam()).(*model.TrackBatch).Tracks[0]
	b := second.Get(cmd.GetOutputParam()).(*model.TrackBatch).Tracks[0]
	assert.Equal(t, a.Id, b.Id)
	assert.Equal(t, model.NewTrack("Song A", "Band B").Id, a.Id)
}

func TestTrackMessageReaderRejectsBadJSON(t *testing.T) {
	cmd := commands.NewTrackMessageReader("track-message-reader")
	ctx := newChainContext("{not json")

	cmd.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	assert.Nil(t, ctx.Get(cmd.GetOutputParam()))
}

func TestCatalogTriggerReaderExtractsObject(t *testing.T) {
	cmd := commands.NewCatalogTriggerReader("catalog-trigger-reader")
	ctx := newChainContext(test.GetTestCatalogNotificationText())

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	obj := ctx.Get(cmd.GetOutputParam()).(*cloud.GCSObject)
	assert.Equal(t, "mood-music-catalog-input-test", obj.Bucket)
	assert.Equal(t, "drops/catalog-2024-10.json", obj.Name)
	assert.Equal(t, "application/json", obj.MIMEType)
	// The object must also be reachable under the well-known key.
	assert.Equal(t, obj, ctx.Get(cloud.GetGCSObjectName()))
}

func TestCatalogFileParserReadsFile(t *testing.T) {
	file := t.TempDir() + "/catalog.json"
	data, err := json.Marshal(&model.TrackBatch{
		Tracks: []*model.Track{model.GetExampleTrack()},
	})
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(file, data, 0o644))

	cmd := commands.NewCatalogFileParser("catalog-file-parser")
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, file)

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	batch := ctx.Get(cmd.GetOutputParam()).(*model.TrackBatch)
	assert.Len(t, batch.Tracks, 1)
}

func TestCatalogFileParserMissingFile(t *testing.T) {
	cmd := commands.NewCatalogFileParser("catalog-file-parser")
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, t.TempDir()+"/does-not-exist.json")

	cmd.Execute(ctx)

	assert.True(t, ctx.HasErrors())
}

func TestTrackValidatorDropsBadRows(t *testing.T) {
	good := model.GetExampleTrack()
	noTitle := model.NewTrack("", "Nameless")
	noTitle.Features = good.Features
	badFeature := model.NewTrack("Overdriven", "Clipping")
	badFeature.Features = model.AudioFeatures{Valence: 1.5, Energy: 0.5, Danceability: 0.5, Tempo: 120}
	zeroTempo := model.NewTrack("Still", "Silence")
	zeroTempo.Features = model.AudioFeatures{Valence: 0.5, Energy: 0.5, Danceability: 0.5, Tempo: 0}

	batch := &model.TrackBatch{Tracks: []*model.Track{good, noTitle, badFeature, zeroTempo, nil}}

	cmd := commands.NewTrackValidator("track-validator")
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, batch)

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	out := ctx.Get(cmd.GetOutputParam()).(*model.TrackBatch)
	assert.Len(t, out.Tracks, 1)
	assert.Equal(t, good.Id, out.Tracks[0].Id)
}

func TestTrackValidatorFailsEmptyBatch(t *testing.T) {
	batch := &model.TrackBatch{Source: "empty", Tracks: []*model.Track{nil, model.NewTrack("", "")}}

	cmd := commands.NewTrackValidator("track-validator")
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, batch)

	cmd.Execute(ctx)

	assert.True(t, ctx.HasErrors())
}

func TestTrackIndexWriterPublishesBatch(t *testing.T) {
	idx := index.NewFeatureIndex()
	batch := &model.TrackBatch{Tracks: []*model.Track{model.GetExampleTrack()}}

	cmd := commands.NewTrackIndexWriter("track-index-writer", idx)
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, batch)

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, 1, idx.Len())
	assert.NotNil(t, idx.Get(batch.Tracks[0].Id))
	// The batch passes through for the persistence step.
	assert.Equal(t, batch, ctx.Get(cmd.GetOutputParam()))
}

func TestFeedbackMessageReaderParsesEvent(t *testing.T) {
	payload := `{"user_id": "user-1", "track_id": "track-1", "signal": "liked"}`

	cmd := commands.NewFeedbackMessageReader("feedback-message-reader")
	ctx := newChainContext(payload)

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	event := ctx.Get(cmd.GetOutputParam()).(*model.FeedbackEvent)
	assert.Equal(t, "user-1", event.UserId)
	assert.Equal(t, model.FeedbackLiked, event.Signal)
	assert.False(t, event.EventTime.IsZero())
}

func TestFeedbackMessageReaderParsesTopicPayload(t *testing.T) {
	cmd := commands.NewFeedbackMessageReader("feedback-message-reader")
	ctx := newChainContext(test.GetTestFeedbackMessageText())

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	event := ctx.Get(cmd.GetOutputParam()).(*model.FeedbackEvent)
	assert.Equal(t, "test-user-001", event.UserId)
	assert.Equal(t, "9d2f5c1e-7b2a-5f3e-8c4d-1a2b3c4d5e6f", event.TrackId)
	assert.Equal(t, model.FeedbackListened, event.Signal)
	assert.InDelta(t, 0.85, event.DurationRatio, 1e-9)
	// A provided event time is kept, not restamped.
	assert.Equal(t, 2024, event.EventTime.Year())
}

func TestFeedbackMessageReaderRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "bad json", payload: `{`},
		{name: "missing user", payload: `{"track_id": "t", "signal": "liked"}`},
		{name: "missing track", payload: `{"user_id": "u", "signal": "liked"}`},
		{name: "unknown signal", payload: `{"user_id": "u", "track_id": "t", "signal": "loved"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := commands.NewFeedbackMessageReader("feedback-message-reader")
			ctx := newChainContext(tc.payload)
			cmd.Execute(ctx)
			assert.True(t, ctx.HasErrors())
		})
	}
}

func TestFeedbackApplyUpdatesProfile(t *testing.T) {
	profiles := services.NewProfileService(nil, "", "", cloud.FeedbackConfig{
		Alpha:         0.3,
		LikedTarget:   1.0,
		SkippedTarget: -1.0,
		HistoryLimit:  100,
	})
	event := &model.FeedbackEvent{UserId: "user-1", TrackId: "track-1", Signal: model.FeedbackLiked}

	cmd := commands.NewFeedbackApply("feedback-apply", profiles)
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, event)

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	interaction := ctx.Get(cmd.GetOutputParam()).(*model.Interaction)
	assert.Equal(t, "user-1", interaction.UserId)
	assert.InDelta(t, 1.0, interaction.Value, 1e-9)
	assert.InDelta(t, 0.3, profiles.Snapshot("user-1").Weight("track-1"), 1e-9)
}

func TestEmotionScoresJsonToStructForcesTextChannel(t *testing.T) {
	payload := `{"channel": "facial", "scores": {"happy": 0.9, "neutral": 0.1}, "confidence": 0.7}`

	cmd := commands.NewEmotionScoresJsonToStruct("emotion-scores-to-struct")
	ctx := newChainContext(payload)

	cmd.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	signal := ctx.Get(cmd.GetOutputParam()).(*model.RawSignal)
	assert.Equal(t, model.ChannelText, signal.Channel)
	assert.InDelta(t, 0.9, signal.Scores["happy"], 1e-9)
	assert.False(t, signal.Timestamp.IsZero())
}
