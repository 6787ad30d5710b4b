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

// This file defines the final step of the feedback workflow: appending the
// recorded Interaction row to the BigQuery interaction table for offline
// analysis and profile rebuilds.
package commands

import (
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// InteractionPersistToBigQuery streams an Interaction row into the
// interaction table.
type InteractionPersistToBigQuery struct {
	cor.BaseCommand
	bigqueryClient *bigquery.Client
	datasetName    string
	tableName      string
}

// NewInteractionPersistToBigQuery is the constructor for the
// InteractionPersistToBigQuery command.
func NewInteractionPersistToBigQuery(
	name string,
	bigqueryClient *bigquery.Client,
	datasetName string,
	tableName string) *InteractionPersistToBigQuery {
	return &InteractionPersistToBigQuery{
		BaseCommand:    *cor.NewBaseCommand(name),
		bigqueryClient: bigqueryClient,
		datasetName:    datasetName,
		tableName:      tableName,
	}
}

// Execute writes the interaction with the streaming inserter.
func (c *InteractionPersistToBigQuery) Execute(context cor.Context) {
	interaction := context.Get(c.GetInputParam()).(*model.Interaction)

	inserter := c.bigqueryClient.Dataset(c.datasetName).Table(c.tableName).Inserter()
	if err := inserter.Put(context.GetContext(), interaction); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to persist interaction: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), interaction)
}
