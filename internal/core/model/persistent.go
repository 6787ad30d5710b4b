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

// Package model defines the core data structures for the application. This
// file contains the persistent models: the track catalog entries stored in
// the BigQuery track table, user-profile snapshots, and the interaction
// history rows written by the feedback workflow. The `bigquery` struct tags
// map fields onto the corresponding table columns for the streaming inserter.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TempoScale normalizes BPM into the unit feature space. 200 BPM maps to 1.0;
// anything faster is clamped.
const TempoScale = 200.0

// FeatureDims is the dimensionality of the audio feature space used by the
// feature index and the emotion-to-music mapper.
const FeatureDims = 4

// AudioFeatures is the fixed-length numeric description of a track's audio
// characteristics. Valence, energy and danceability are already unit-scaled;
// tempo is raw BPM and is normalized by Vector.
type AudioFeatures struct {
	Valence      float64 `json:"valence" bigquery:"valence"`
	Energy       float64 `json:"energy" bigquery:"energy"`
	Danceability float64 `json:"danceability" bigquery:"danceability"`
	Tempo        float64 `json:"tempo" bigquery:"tempo"`
}

// Vector returns the features as a point in the normalized unit feature
// space. The order of dimensions is fixed: valence, energy, danceability,
// tempo/TempoScale.
func (a AudioFeatures) Vector() []float64 {
	tempo := a.Tempo / TempoScale
	if tempo > 1.0 {
		tempo = 1.0
	}
	return []float64{a.Valence, a.Energy, a.Danceability, tempo}
}

// Track is a single catalog entry. Tracks are immutable after ingestion and
// the catalog is append-only from the engine's point of view: re-ingesting an
// id replaces the entry wholesale.
type Track struct {
	Id            string        `json:"id" bigquery:"id"`
	Title         string        `json:"title" bigquery:"title"`
	Artist        string        `json:"artist" bigquery:"artist"`
	Genre         string        `json:"genre,omitempty" bigquery:"genre"`
	Features      AudioFeatures `json:"features" bigquery:"features"`
	PreviewObject string        `json:"preview_object,omitempty" bigquery:"preview_object"`
	CreateDate    time.Time     `json:"create_date" bigquery:"create_date"`
}

// NewTrack creates a Track with a deterministic id derived from the artist
// and title, so the same catalog row ingested twice resolves to the same
// entry regardless of which path (streaming or batch) delivered it.
func NewTrack(title string, artist string) *Track {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s|%s", artist, title)))
	return &Track{
		Id:         id.String(),
		Title:      title,
		Artist:     artist,
		CreateDate: time.Now(),
	}
}

// TrackWeight is one collaborative preference entry in a user profile.
type TrackWeight struct {
	TrackId string  `json:"track_id" bigquery:"track_id"`
	Weight  float64 `json:"weight" bigquery:"weight"`
}

// Interaction is one recorded feedback event, persisted to the interaction
// table for offline analysis and profile rebuilds.
type Interaction struct {
	UserId    string    `json:"user_id" bigquery:"user_id"`
	TrackId   string    `json:"track_id" bigquery:"track_id"`
	Signal    string    `json:"signal" bigquery:"signal"`
	Value     float64   `json:"value" bigquery:"value"`
	EventTime time.Time `json:"event_time" bigquery:"event_time"`
}

// UserProfile holds a user's collaborative preference weights and a bounded
// window of their interaction history. Profiles are created on first
// interaction, mutated only by the feedback loop, and never deleted by the
// engine.
type UserProfile struct {
	UserId     string         `json:"user_id" bigquery:"user_id"`
	Weights    []*TrackWeight `json:"weights" bigquery:"weights"`
	History    []*Interaction `json:"history" bigquery:"history"`
	UpdateTime time.Time      `json:"update_time" bigquery:"update_time"`
}

// NewUserProfile creates an empty profile for a first-time user.
func NewUserProfile(userId string) *UserProfile {
	return &UserProfile{
		UserId:  userId,
		Weights: make([]*TrackWeight, 0),
		History: make([]*Interaction, 0),
	}
}

// Weight returns the preference weight for a track, or 0 when the user has
// no recorded preference for it.
func (p *UserProfile) Weight(trackId string) float64 {
	for _, w := range p.Weights {
		if w.TrackId == trackId {
			return w.Weight
		}
	}
	return 0
}

// Clone returns a deep copy of the profile. The ranker operates on a clone so
// that one recommendation call sees a consistent profile snapshot even while
// the feedback loop keeps writing.
func (p *UserProfile) Clone() *UserProfile {
	out := &UserProfile{
		UserId:     p.UserId,
		Weights:    make([]*TrackWeight, 0, len(p.Weights)),
		History:    make([]*Interaction, 0, len(p.History)),
		UpdateTime: p.UpdateTime,
	}
	for _, w := range p.Weights {
		cw := *w
		out.Weights = append(out.Weights, &cw)
	}
	for _, h := range p.History {
		ch := *h
		out.History = append(out.History, &ch)
	}
	return out
}
