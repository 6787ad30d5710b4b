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

// This file defines the command that parses the text scorer's JSON response
// into a RawSignal on the text channel, ready for the signal adapter.
package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// EmotionScoresJsonToStruct converts the model's JSON response into a
// RawSignal struct.
type EmotionScoresJsonToStruct struct {
	cor.BaseCommand
}

// NewEmotionScoresJsonToStruct is the constructor for the
// EmotionScoresJsonToStruct command.
func NewEmotionScoresJsonToStruct(name string) *EmotionScoresJsonToStruct {
	return &EmotionScoresJsonToStruct{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the JSON payload and stamps the channel. The model is told
// to answer for the text channel, but the channel field is forced here so a
// drifting response cannot masquerade as another sensor.
func (c *EmotionScoresJsonToStruct) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	signal := &model.RawSignal{}
	if err := json.Unmarshal([]byte(in), signal); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal emotion scores: %w", err))
		return
	}

	signal.Channel = model.ChannelText
	if signal.Timestamp.IsZero() {
		signal.Timestamp = time.Now()
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), signal)
}
