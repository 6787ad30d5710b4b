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

// This file defines the TrackService, the data access layer for the track
// catalog: point lookups and warm loads from BigQuery, and signed URLs for
// the preview audio objects stored in Cloud Storage.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/index"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"google.golang.org/api/iterator"
)

// TrackService encapsulates the clients and configuration needed for
// catalog operations against BigQuery and Cloud Storage.
type TrackService struct {
	BigQueryClient *bigquery.Client                  // Client for BigQuery reads.
	StorageClient  *storage.Client                   // Client for Cloud Storage, used for signed URLs.
	IAMClient      *credentials.IamCredentialsClient // Client for IAM, used when signing without a local key.
	Index          *index.FeatureIndex               // The in-memory feature index to warm-load into.
	SignerEmail    string                            // The service account email used to sign URLs.
	DatasetName    string                            // The BigQuery dataset name.
	TrackTable     string                            // The table holding the track catalog.
	PreviewBucket  string                            // The bucket holding preview audio objects.
}

// GetFQN returns the fully qualified, queryable name of the track table,
// with the project separator rewritten from a colon to a period.
func (s *TrackService) GetFQN() string {
	fqn := s.BigQueryClient.Dataset(s.DatasetName).Table(s.TrackTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Get retrieves a single track from BigQuery by id. Callers on the
// recommendation path should prefer Index.Get; this is the authoritative
// lookup used by the API when the index may not yet be warm.
func (s *TrackService) Get(ctx context.Context, id string) (track *model.Track, err error) {
	queryText := fmt.Sprintf(QryFindTrackById, s.GetFQN(), id)
	q := s.BigQueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return track, err
	}
	track = &model.Track{}
	err = itr.Next(track)
	return track, err
}

// WarmLoad streams the whole persisted catalog into the feature index. Run
// once at startup so restarts do not lose the catalog the streaming and
// batch ingest paths accumulated.
func (s *TrackService) WarmLoad(ctx context.Context) (int, error) {
	queryText := fmt.Sprintf(QryListTracks, s.GetFQN())
	q := s.BigQueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return 0, err
	}

	tracks := make([]*model.Track, 0)
	for {
		track := &model.Track{}
		err := itr.Next(track)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		tracks = append(tracks, track)
	}
	s.Index.IngestBatch(tracks)
	slog.Info("warm loaded track catalog", "count", len(tracks), "version", s.Index.Version())
	return len(tracks), nil
}

// GenerateSignedURL creates a time-limited URL for a preview audio object so
// clients can stream it straight from Cloud Storage without credentials. The
// URL is signed as the configured service account.
func (s *TrackService) GenerateSignedURL(objectName string, expires time.Duration) (string, error) {
	if objectName == "" {
		return "", fmt.Errorf("track has no preview object")
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}
	u, err := s.StorageClient.Bucket(s.PreviewBucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", s.PreviewBucket, objectName, err)
	}
	return u, nil
}
