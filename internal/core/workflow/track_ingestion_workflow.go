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

// Package workflow defines the high-level orchestrations of the engine,
// combining individual commands into coherent pipelines. This file implements
// the streaming track-ingestion workflow.
package workflow

import (
	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/commands"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
)

// TrackIngestionWorkflow handles a track batch delivered on the ingestion
// Pub/Sub topic: parse, validate, publish to the feature index, then persist
// to BigQuery. The index write precedes persistence so a freshly ingested
// track is recommendable even when the warehouse write fails and the message
// is redelivered.
type TrackIngestionWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	chain  cor.Chain
}

// Execute runs the underlying chain.
func (w *TrackIngestionWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *TrackIngestionWorkflow) initializeChain(serviceClients *cloud.ServiceClients, idx *index.FeatureIndex) {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewTrackMessageReader("track-message-reader"))
	out.AddCommand(commands.NewTrackValidator("track-validator"))
	out.AddCommand(commands.NewTrackIndexWriter("track-index-writer", idx))
	out.AddCommand(commands.NewTrackPersistToBigQuery(
		"track-write-to-bigquery",
		serviceClients.BigQueryClient,
		w.config.BigQueryDataSource.DatasetName,
		w.config.BigQueryDataSource.TrackTable))
	w.chain = out
}

// NewTrackIngestionWorkflow is the constructor for the TrackIngestionWorkflow.
func NewTrackIngestionWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	idx *index.FeatureIndex) *TrackIngestionWorkflow {

	pipeline := &TrackIngestionWorkflow{
		BaseCommand: *cor.NewBaseCommand("track-ingestion-pipeline"),
		config:      config,
	}
	pipeline.initializeChain(serviceClients, idx)
	return pipeline
}
