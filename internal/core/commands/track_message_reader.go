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

// Package commands provides the concrete Command implementations used by the
// engine's workflows. This file defines the first step of the streaming
// ingestion path: parsing a Pub/Sub track message into a TrackBatch.
//
// Logic Flow:
//  1. The raw JSON message body arrives in the chain's input parameter.
//  2. It is unmarshaled into a model.TrackBatch.
//  3. Tracks without an id get the deterministic artist+title id, so the
//     same catalog row delivered twice resolves to the same entry.
//  4. The batch is placed in the output parameter for the validator.
package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// TrackMessageReader parses a track-ingestion Pub/Sub message into a
// TrackBatch.
type TrackMessageReader struct {
	cor.BaseCommand
}

// NewTrackMessageReader is the constructor for the TrackMessageReader
// command.
func NewTrackMessageReader(name string) *TrackMessageReader {
	return &TrackMessageReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the message payload and normalizes the track identifiers.
func (c *TrackMessageReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	batch := &model.TrackBatch{}
	if err := json.Unmarshal([]byte(in), batch); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal track batch: %w", err))
		return
	}

	for _, track := range batch.Tracks {
		if track == nil {
			continue
		}
		if track.Id == "" {
			track.Id = uuid.NewSHA1(uuid.NameSpaceURL,
				[]byte(fmt.Sprintf("%s|%s", track.Artist, track.Title))).String()
		}
		if track.CreateDate.IsZero() {
			track.CreateDate = time.Now()
		}
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), batch)
}
