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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains struct definitions for data models that
// are used in memory while a request or ingestion workflow executes. These
// objects are never persisted in this form; they are intermediate containers
// passed between pipeline stages and chain commands.
package model

import "time"

// These objects are used in memory via workflows, but are not persisted to the dataset

// FeedbackSignal enumerates the user reactions the feedback loop accepts.
type FeedbackSignal string

const (
	FeedbackLiked    FeedbackSignal = "liked"
	FeedbackSkipped  FeedbackSignal = "skipped"
	FeedbackListened FeedbackSignal = "listened"
)

// Valid reports whether the signal is one of the accepted values.
func (s FeedbackSignal) Valid() bool {
	switch s {
	case FeedbackLiked, FeedbackSkipped, FeedbackListened:
		return true
	}
	return false
}

// FeedbackEvent is the JSON payload delivered on the feedback Pub/Sub topic
// and by the feedback API route. DurationRatio is only meaningful for the
// "listened" signal and is clamped to [0, 1] by the feedback reader.
type FeedbackEvent struct {
	UserId        string         `json:"user_id"`
	TrackId       string         `json:"track_id"`
	Signal        FeedbackSignal `json:"signal"`
	DurationRatio float64        `json:"duration_ratio,omitempty"`
	EventTime     time.Time      `json:"event_time,omitempty"`
}

// TrackBatch is the JSON payload delivered on the track-ingestion topic and
// the parsed form of a catalog file dropped in the catalog bucket.
type TrackBatch struct {
	Source string   `json:"source,omitempty"`
	Tracks []*Track `json:"tracks"`
}

// TrackMatch pairs a track with its distance and similarity relative to a
// feature-index query point. Similarity is monotone decreasing in distance.
type TrackMatch struct {
	Track      *Track
	Distance   float64
	Similarity float64
}

// Strategy names the sub-strategy that proposed a candidate.
const (
	StrategyContent       = "content"
	StrategyCollaborative = "collaborative"
)

// Candidate is one track proposed by the emotion-to-music mapper. When both
// strategies propose the same track the per-strategy scores are merged,
// keeping the maximum of each.
type Candidate struct {
	Track       *Track
	Similarity  float64
	CollabScore float64
	Strategies  []string
}

// Explanation records why a track was recommended: which strategies
// contributed and the dominant matched emotion label.
type Explanation struct {
	Strategies []string `json:"strategies"`
	Emotion    string   `json:"emotion"`
}

// Recommendation is one entry of a RecommendationResult.
type Recommendation struct {
	Track       *Track      `json:"track"`
	Score       float64     `json:"score"`
	Explanation Explanation `json:"explanation"`
}

// RecommendationResult is the ordered output of one recommend call. It is
// produced fresh per call and never persisted by the engine.
type RecommendationResult struct {
	UserId     string            `json:"user_id"`
	Emotion    string            `json:"emotion"`
	Confidence float64           `json:"confidence"`
	Items      []*Recommendation `json:"items"`
}
