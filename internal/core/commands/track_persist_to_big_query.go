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

// This file defines the final step of the ingestion workflows: streaming the
// validated tracks into the BigQuery catalog table so the index can be warm
// loaded on the next startup.
package commands

import (
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// TrackPersistToBigQuery streams a TrackBatch into the catalog table.
type TrackPersistToBigQuery struct {
	cor.BaseCommand
	bigqueryClient *bigquery.Client
	datasetName    string
	tableName      string
}

// NewTrackPersistToBigQuery is the constructor for the TrackPersistToBigQuery
// command.
func NewTrackPersistToBigQuery(
	name string,
	bigqueryClient *bigquery.Client,
	datasetName string,
	tableName string) *TrackPersistToBigQuery {
	return &TrackPersistToBigQuery{
		BaseCommand:    *cor.NewBaseCommand(name),
		bigqueryClient: bigqueryClient,
		datasetName:    datasetName,
		tableName:      tableName,
	}
}

// Execute writes the batch with the streaming inserter. The batch passes
// through as output so a caller can inspect what was persisted.
func (c *TrackPersistToBigQuery) Execute(context cor.Context) {
	batch := context.Get(c.GetInputParam()).(*model.TrackBatch)

	inserter := c.bigqueryClient.Dataset(c.datasetName).Table(c.tableName).Inserter()
	if err := inserter.Put(context.GetContext(), batch.Tracks); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to persist track batch: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), batch)
}
