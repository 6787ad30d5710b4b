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

// This file defines the validation step both ingestion paths share. A batch
// may mix good and bad rows; bad rows are dropped with a warning rather than
// poisoning the whole batch, and the chain only fails when nothing valid
// remains.
package commands

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// TrackValidator filters a TrackBatch down to its valid rows.
type TrackValidator struct {
	cor.BaseCommand
}

// NewTrackValidator is the constructor for the TrackValidator command.
func NewTrackValidator(name string) *TrackValidator {
	return &TrackValidator{BaseCommand: *cor.NewBaseCommand(name)}
}

// validFeature reports whether v is a usable unit-scaled feature value.
func validFeature(v float64) bool {
	return !math.IsNaN(v) && v >= 0.0 && v <= 1.0
}

// validTrack checks the catalog contract: non-empty identifiers, unit-scaled
// valence/energy/danceability, and a positive tempo.
func validTrack(t *model.Track) bool {
	if t == nil || t.Id == "" || t.Title == "" || t.Artist == "" {
		return false
	}
	f := t.Features
	if !validFeature(f.Valence) || !validFeature(f.Energy) || !validFeature(f.Danceability) {
		return false
	}
	return !math.IsNaN(f.Tempo) && f.Tempo > 0
}

// Execute drops invalid tracks from the batch and fails the chain only when
// no valid track survives.
func (c *TrackValidator) Execute(context cor.Context) {
	batch := context.Get(c.GetInputParam()).(*model.TrackBatch)

	valid := make([]*model.Track, 0, len(batch.Tracks))
	for _, track := range batch.Tracks {
		if validTrack(track) {
			valid = append(valid, track)
			continue
		}
		if track != nil {
			slog.Warn("dropping invalid track",
				"id", track.Id,
				"title", track.Title,
				"artist", track.Artist,
				"source", batch.Source)
		}
	}

	if len(valid) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no valid tracks in batch from source %q", batch.Source))
		return
	}

	batch.Tracks = valid
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), batch)
}
