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

// This file implements the batch catalog workflow, triggered when a catalog
// file lands in the watched GCS bucket.
package workflow

import (
	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/commands"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
)

// CatalogFileWorkflow handles a GCS bucket notification for a dropped catalog
// file: download it to a temp file, parse it into a track batch, then run the
// same validate/index/persist tail as the streaming path. The temp file is
// tracked on the chain context and removed when the context closes.
type CatalogFileWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	chain  cor.Chain
}

// Execute runs the underlying chain.
func (w *CatalogFileWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *CatalogFileWorkflow) initializeChain(serviceClients *cloud.ServiceClients, idx *index.FeatureIndex) {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewCatalogTriggerReader("catalog-trigger-reader"))
	out.AddCommand(commands.NewGCSToTempFile("catalog-to-temp-file", serviceClients.StorageClient, "catalog-"))
	out.AddCommand(commands.NewCatalogFileParser("catalog-file-parser"))
	out.AddCommand(commands.NewTrackValidator("track-validator"))
	out.AddCommand(commands.NewTrackIndexWriter("track-index-writer", idx))
	out.AddCommand(commands.NewTrackPersistToBigQuery(
		"track-write-to-bigquery",
		serviceClients.BigQueryClient,
		w.config.BigQueryDataSource.DatasetName,
		w.config.BigQueryDataSource.TrackTable))
	w.chain = out
}

// NewCatalogFileWorkflow is the constructor for the CatalogFileWorkflow.
func NewCatalogFileWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	idx *index.FeatureIndex) *CatalogFileWorkflow {

	pipeline := &CatalogFileWorkflow{
		BaseCommand: *cor.NewBaseCommand("catalog-file-pipeline"),
		config:      config,
	}
	pipeline.initializeChain(serviceClients, idx)
	return pipeline
}
