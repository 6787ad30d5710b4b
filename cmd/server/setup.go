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

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/workflow"
)

// StateManager holds the shared components of the server process.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	featureIndex *index.FeatureIndex
	trackService *services.TrackService
	profiles     *services.ProfileService
	recommender  *services.Recommender
	textSignals  *workflow.TextSignalWorkflow
}

var state = &StateManager{}

// SetupOS points the config loader at the local configs directory unless the
// environment already says otherwise.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the application configuration once.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState builds the cloud clients, core services, and background workers,
// then warm loads persisted state so recommendations work immediately.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.featureIndex = index.NewFeatureIndex()

	state.trackService = &services.TrackService{
		BigQueryClient: cloudClients.BigQueryClient,
		StorageClient:  cloudClients.StorageClient,
		IAMClient:      cloudClients.IAMClient,
		Index:          state.featureIndex,
		SignerEmail:    config.Application.SignerServiceAccountEmail,
		DatasetName:    config.BigQueryDataSource.DatasetName,
		TrackTable:     config.BigQueryDataSource.TrackTable,
		PreviewBucket:  config.Storage.PreviewBucket,
	}

	state.profiles = services.NewProfileService(
		cloudClients.BigQueryClient,
		config.BigQueryDataSource.DatasetName,
		config.BigQueryDataSource.ProfileTable,
		config.Feedback)

	// Warm loads are best effort: an empty warehouse is a valid cold start.
	if count, err := state.trackService.WarmLoad(ctx); err != nil {
		slog.Warn("track warm load failed", "error", err)
	} else {
		slog.Info("track catalog warm loaded", "tracks", count)
	}
	if count, err := state.profiles.LoadAll(ctx); err != nil {
		slog.Warn("profile warm load failed", "error", err)
	} else {
		slog.Info("profiles warm loaded", "profiles", count)
	}

	state.recommender = services.NewRecommender(config, state.featureIndex, state.profiles)
	state.textSignals = workflow.NewTextSignalWorkflow(config, cloudClients, "emotion-scorer")

	snapshotter := workflow.NewProfileSnapshotWorker(state.profiles, time.Minute)
	snapshotter.Start(ctx)

	SetupListeners(ctx, config, cloudClients)
}

// SetupListeners attaches the ingestion and feedback workflows to their
// Pub/Sub subscriptions and starts receiving.
func SetupListeners(ctx context.Context, config *cloud.Config, cloudClients *cloud.ServiceClients) {
	trackIngestion := workflow.NewTrackIngestionWorkflow(config, cloudClients, state.featureIndex)
	cloudClients.PubSubListeners["TrackTopic"].SetCommand(trackIngestion)
	cloudClients.PubSubListeners["TrackTopic"].Listen(ctx)

	catalogFiles := workflow.NewCatalogFileWorkflow(config, cloudClients, state.featureIndex)
	cloudClients.PubSubListeners["CatalogTopic"].SetCommand(catalogFiles)
	cloudClients.PubSubListeners["CatalogTopic"].Listen(ctx)

	feedback := workflow.NewFeedbackWorkflow(config, cloudClients, state.profiles)
	cloudClients.PubSubListeners["FeedbackTopic"].SetCommand(feedback)
	cloudClients.PubSubListeners["FeedbackTopic"].Listen(ctx)
}
