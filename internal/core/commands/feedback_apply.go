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

// This file defines the command that applies a parsed FeedbackEvent to the
// user's profile. The profile service owns the update rule; this command
// adapts it into the chain and forwards the recorded Interaction row to the
// persistence step.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
)

// FeedbackApply updates the user profile from a FeedbackEvent.
type FeedbackApply struct {
	cor.BaseCommand
	profiles *services.ProfileService
}

// NewFeedbackApply is the constructor for the FeedbackApply command.
func NewFeedbackApply(name string, profiles *services.ProfileService) *FeedbackApply {
	return &FeedbackApply{BaseCommand: *cor.NewBaseCommand(name), profiles: profiles}
}

// Execute records the event against the profile service and emits the
// resulting interaction row.
func (c *FeedbackApply) Execute(context cor.Context) {
	event := context.Get(c.GetInputParam()).(*model.FeedbackEvent)

	interaction, err := c.profiles.Record(context.GetContext(), event)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to apply feedback for user %s: %w", event.UserId, err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), interaction)
}
