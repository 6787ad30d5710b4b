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

// This file implements the feedback workflow, applying user reactions from
// the feedback Pub/Sub topic to profiles and recording them in BigQuery.
package workflow

import (
	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/commands"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
)

// FeedbackWorkflow handles a feedback event: parse and validate the payload,
// apply the incremental profile update, then append the interaction row to
// BigQuery. The profile update happens before persistence, so a failed
// warehouse write never delays the ranking effect of the feedback.
type FeedbackWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	chain  cor.Chain
}

// Execute runs the underlying chain.
func (w *FeedbackWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

func (w *FeedbackWorkflow) initializeChain(serviceClients *cloud.ServiceClients, profiles *services.ProfileService) {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewFeedbackMessageReader("feedback-message-reader"))
	out.AddCommand(commands.NewFeedbackApply("feedback-apply", profiles))
	out.AddCommand(commands.NewInteractionPersistToBigQuery(
		"interaction-write-to-bigquery",
		serviceClients.BigQueryClient,
		w.config.BigQueryDataSource.DatasetName,
		w.config.BigQueryDataSource.InteractionTable))
	w.chain = out
}

// NewFeedbackWorkflow is the constructor for the FeedbackWorkflow.
func NewFeedbackWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	profiles *services.ProfileService) *FeedbackWorkflow {

	pipeline := &FeedbackWorkflow{
		BaseCommand: *cor.NewBaseCommand("feedback-pipeline"),
		config:      config,
	}
	pipeline.initializeChain(serviceClients, profiles)
	return pipeline
}
