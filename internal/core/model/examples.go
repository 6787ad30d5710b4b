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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models.
//
// The raw-signal example is embedded in the text-channel scoring prompt as a
// "few-shot" sample: showing the generative model a concrete instance of the
// desired JSON output keeps its responses consistent and parsable. The track
// example is shared by tests that need a well-formed catalog entry.
package model

import "time"

// GetExampleRawSignal returns a sample text-channel RawSignal. It is
// serialized into the text scoring prompt so the model returns scores over
// exactly the taxonomy labels with a confidence field.
func GetExampleRawSignal() *RawSignal {
	return &RawSignal{
		Channel: ChannelText,
		Scores: map[string]float64{
			"angry":    0.02,
			"disgust":  0.01,
			"fear":     0.02,
			"happy":    0.75,
			"neutral":  0.10,
			"sad":      0.05,
			"surprise": 0.05,
		},
		Confidence: 0.8,
	}
}

// GetExampleTrack returns a sample catalog entry used by tests and by the
// ingestion documentation.
func GetExampleTrack() *Track {
	t := NewTrack("Happy Vibes", "Sunny Day Band")
	t.Genre = "pop"
	t.Features = AudioFeatures{
		Valence:      0.9,
		Energy:       0.8,
		Danceability: 0.7,
		Tempo:        128,
	}
	t.CreateDate = time.Date(2024, 10, 11, 3, 4, 8, 0, time.UTC)
	return t
}
