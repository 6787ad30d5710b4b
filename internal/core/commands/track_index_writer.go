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

// This file defines the command that makes a validated TrackBatch queryable:
// publishing it into the in-memory feature index. It runs before the BigQuery
// persistence step so a recommendation can see a freshly ingested track even
// if the warehouse write lags.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// TrackIndexWriter publishes a validated TrackBatch into the feature index.
type TrackIndexWriter struct {
	cor.BaseCommand
	index *index.FeatureIndex
}

// NewTrackIndexWriter is the constructor for the TrackIndexWriter command.
func NewTrackIndexWriter(name string, idx *index.FeatureIndex) *TrackIndexWriter {
	return &TrackIndexWriter{BaseCommand: *cor.NewBaseCommand(name), index: idx}
}

// Execute ingests the batch and passes it through unchanged for the
// persistence step.
func (c *TrackIndexWriter) Execute(context cor.Context) {
	batch := context.Get(c.GetInputParam()).(*model.TrackBatch)

	c.index.IngestBatch(batch.Tracks)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("indexed track batch",
		"tracks", len(batch.Tracks),
		"catalog_size", c.index.Len(),
		"version", c.index.Version())
	context.Add(c.GetOutputParam(), batch)
}
