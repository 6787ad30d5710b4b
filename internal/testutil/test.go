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

// Package test provides utility functions and mock data to support the
// application's test suite: a cached test configuration and canned Pub/Sub
// payloads for the ingestion and feedback workflows.
package test

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
)

// StateManager caches the loaded test configuration so it is read from the
// TOML files only once per test run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is non-nil.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestTrackMessageText returns a JSON payload matching what the track
// ingestion topic delivers: a small batch with one fully-specified track and
// one track that relies on the deterministic id assignment.
func GetTestTrackMessageText() string {
	return `{
  "source": "test-label-feed",
  "tracks": [
    {
      "id": "9d2f5c1e-7b2a-5f3e-8c4d-1a2b3c4d5e6f",
      "title": "Golden Hour",
      "artist": "The Skyline",
      "genre": "indie pop",
      "features": { "valence": 0.82, "energy": 0.74, "danceability": 0.68, "tempo": 124 },
      "preview_object": "previews/golden-hour.mp3"
    },
    {
      "title": "Low Tide",
      "artist": "Harbor Lights",
      "genre": "ambient",
      "features": { "valence": 0.35, "energy": 0.2, "danceability": 0.25, "tempo": 72 }
    }
  ]
}`
}

// GetTestCatalogNotificationText returns a JSON payload simulating the GCS
// notification published when a catalog file lands in the watched bucket.
func GetTestCatalogNotificationText() string {
	return `{
  "kind": "storage#object",
  "id": "mood-music-catalog-input-test/drops/catalog-2024-10.json/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/mood-music-catalog-input-test/o/catalog-2024-10.json",
  "name": "drops/catalog-2024-10.json",
  "bucket": "mood-music-catalog-input-test",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "application/json",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "20481",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// GetTestFeedbackMessageText returns a JSON payload matching what the
// feedback topic delivers.
func GetTestFeedbackMessageText() string {
	return `{
  "user_id": "test-user-001",
  "track_id": "9d2f5c1e-7b2a-5f3e-8c4d-1a2b3c4d5e6f",
  "signal": "listened",
  "duration_ratio": 0.85,
  "event_time": "2024-10-11T03:10:00Z"
}`
}

// findConfigDir walks up from the test's working directory until it finds
// the configs directory, so tests load the same TOML files no matter which
// package they run from.
func findConfigDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "configs")
		if _, err := os.Stat(filepath.Join(candidate, cloud.ConfigFileBaseName+cloud.ConfigFileExtension)); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// SetupOS points the config loader at the test configuration files.
func SetupOS() (err error) {
	prefix, err := findConfigDir()
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigFilePrefix, prefix)
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
