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

// This file defines the Recommender, the engine facade the serving layer
// calls. It wires adapter, fusion, mapper, and ranker into the single
// recommend operation and keeps the per-emotion serving statistics.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/fusion"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/signal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recommender composes the whole recommendation path. All components it
// holds are safe for concurrent use, so a single Recommender serves every
// request.
type Recommender struct {
	Adapter  *signal.Adapter
	Fusion   *fusion.Engine
	Mapper   *EmotionMapper
	Ranker   *HybridRanker
	Profiles *ProfileService
	Taxonomy cloud.TaxonomyConfig

	statsMu sync.Mutex
	stats   map[string]int64

	servedCounter metric.Int64Counter
}

// NewRecommender wires the engine components against a shared feature index
// and profile service.
func NewRecommender(config *cloud.Config, idx *index.FeatureIndex, profiles *ProfileService) *Recommender {
	meter := otel.Meter(cor.MeterNamespace)
	servedCounter, err := meter.Int64Counter("recommendations.served")
	if err != nil {
		slog.Error("error creating recommendation counter", "error", err)
	}
	return &Recommender{
		Adapter:       signal.NewAdapter(config),
		Fusion:        fusion.NewEngine(config),
		Mapper:        NewEmotionMapper(idx, config),
		Ranker:        NewHybridRanker(config),
		Profiles:      profiles,
		Taxonomy:      config.Taxonomy,
		stats:         make(map[string]int64),
		servedCounter: servedCounter,
	}
}

// Recommend runs one full recommendation call: normalize each raw signal,
// fuse the surviving readings, map the fused emotion to candidates, and
// rank them against the user's profile snapshot.
//
// Per-channel failures are absorbed: a signal the adapter rejects is logged
// as channel unavailable and dropped. The call fails only with ErrNoSignal
// when no usable reading remains, since retrying without new input cannot
// succeed. An empty result list is a valid outcome, not an error.
func (r *Recommender) Recommend(ctx context.Context, userId string, signals []model.RawSignal, count int) (*model.RecommendationResult, error) {
	readings := make([]*model.ChannelReading, 0, len(signals))
	for _, raw := range signals {
		reading, err := r.Adapter.Normalize(raw)
		if err != nil {
			slog.WarnContext(ctx, "channel unavailable", "channel", raw.Channel, "error", err)
			continue
		}
		readings = append(readings, reading)
	}

	fused, err := r.Fusion.Fuse(readings)
	if err != nil {
		return nil, err
	}

	profile := r.Profiles.Snapshot(userId)
	candidates := r.Mapper.Map(fused, profile)
	result := r.Ranker.Rank(candidates, fused, profile, count)
	result.UserId = userId

	r.recordServed(ctx, result.Emotion)
	return result, nil
}

// GeneratePlaylist builds a recommendation list for an explicitly requested
// set of emotions instead of classifier signals: the labels are blended into
// a single equal-weighted state and ranked through the same mapper and
// ranker path as a live recommendation. Labels outside the taxonomy are
// rejected; an empty label list is ErrNoSignal since there is nothing to
// blend.
func (r *Recommender) GeneratePlaylist(ctx context.Context, userId string, emotions []string, count int) (*model.RecommendationResult, error) {
	if len(emotions) == 0 {
		return nil, model.ErrNoSignal
	}
	scores := make(model.EmotionVector, len(emotions))
	for _, label := range emotions {
		if !r.Taxonomy.Contains(label) {
			return nil, fmt.Errorf("unknown emotion %q", label)
		}
		scores[label] = 1.0
	}
	fused := &model.FusedState{
		Scores:     scores.Normalized(),
		Confidence: 1.0,
	}

	profile := r.Profiles.Snapshot(userId)
	candidates := r.Mapper.Map(fused, profile)
	result := r.Ranker.Rank(candidates, fused, profile, count)
	result.UserId = userId

	r.recordServed(ctx, result.Emotion)
	return result, nil
}

// Record forwards a feedback event to the profile service. Exposed on the
// facade so the serving layer only ever talks to the Recommender.
func (r *Recommender) Record(ctx context.Context, event *model.FeedbackEvent) (*model.Interaction, error) {
	return r.Profiles.Record(ctx, event)
}

// recordServed bumps the per-emotion serving counters, both the in-process
// table behind the stats route and the exported OTel metric.
func (r *Recommender) recordServed(ctx context.Context, emotion string) {
	r.statsMu.Lock()
	r.stats[emotion]++
	r.statsMu.Unlock()

	if r.servedCounter != nil {
		r.servedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("emotion", emotion)))
	}
}

// Stats returns a copy of the per-emotion recommendation counts since
// process start.
func (r *Recommender) Stats() map[string]int64 {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	out := make(map[string]int64, len(r.stats))
	for emotion, count := range r.stats {
		out[emotion] = count
	}
	return out
}
