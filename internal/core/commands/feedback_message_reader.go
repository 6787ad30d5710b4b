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

// This file defines the entry point of the feedback workflow: parsing a
// feedback Pub/Sub message into a typed FeedbackEvent and rejecting
// malformed payloads before they reach the profile update.
package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// FeedbackMessageReader parses a feedback Pub/Sub message into a
// FeedbackEvent.
type FeedbackMessageReader struct {
	cor.BaseCommand
}

// NewFeedbackMessageReader is the constructor for the FeedbackMessageReader
// command.
func NewFeedbackMessageReader(name string) *FeedbackMessageReader {
	return &FeedbackMessageReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses and validates the event payload.
func (c *FeedbackMessageReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	event := &model.FeedbackEvent{}
	if err := json.Unmarshal([]byte(in), event); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal feedback event: %w", err))
		return
	}

	if event.UserId == "" || event.TrackId == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("feedback event missing user or track id"))
		return
	}
	if !event.Signal.Valid() {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("unknown feedback signal %q", event.Signal))
		return
	}
	if event.EventTime.IsZero() {
		event.EventTime = time.Now()
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), event)
}
