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

// This file defines the ProfileService, the feedback loop's write side and
// the mapper/ranker's read side for user profiles.
//
// Concurrency model: profiles live in memory, keyed by user id. A read-write
// mutex guards the map itself; a fixed pool of striped mutexes serializes
// updates per user, so concurrent feedback for the same user never loses an
// update while different users proceed independently. Readers take a deep
// copy (snapshot) of the profile under the user's stripe, so one
// recommendation call sees a consistent profile throughout. Dirty profiles
// are flushed to BigQuery in the background by the snapshot workflow.
package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
	"google.golang.org/api/iterator"
)

// lockStripes fixes the size of the per-user mutex pool. Collisions between
// users on the same stripe cost serialization, not correctness.
const lockStripes = 64

// ProfileService owns all user profiles and applies feedback updates to
// them. It never deletes a profile.
type ProfileService struct {
	BigQueryClient *bigquery.Client // Client for persisting and restoring snapshots.
	DatasetName    string           // The BigQuery dataset name.
	ProfileTable   string           // The table holding profile snapshots.
	Feedback       cloud.FeedbackConfig

	mu       sync.RWMutex // guards the profiles and dirty maps
	profiles map[string]*model.UserProfile
	dirty    map[string]bool
	stripes  [lockStripes]sync.Mutex
}

// NewProfileService creates a profile service with an empty in-memory state.
func NewProfileService(client *bigquery.Client, dataset string, table string, feedback cloud.FeedbackConfig) *ProfileService {
	return &ProfileService{
		BigQueryClient: client,
		DatasetName:    dataset,
		ProfileTable:   table,
		Feedback:       feedback,
		profiles:       make(map[string]*model.UserProfile),
		dirty:          make(map[string]bool),
	}
}

// GetFQN returns the fully qualified, queryable name of the profile table.
func (s *ProfileService) GetFQN() string {
	fqn := s.BigQueryClient.Dataset(s.DatasetName).Table(s.ProfileTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// stripe maps a user id onto its serialization mutex.
func (s *ProfileService) stripe(userId string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userId))
	return &s.stripes[h.Sum32()%lockStripes]
}

// getOrCreate returns the live profile for a user, creating one on first
// interaction. Callers must hold the user's stripe when mutating the result.
func (s *ProfileService) getOrCreate(userId string) *model.UserProfile {
	s.mu.RLock()
	profile, ok := s.profiles[userId]
	s.mu.RUnlock()
	if ok {
		return profile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile, ok = s.profiles[userId]; ok {
		return profile
	}
	profile = model.NewUserProfile(userId)
	s.profiles[userId] = profile
	return profile
}

// Snapshot returns a deep copy of a user's profile, or an empty profile for
// a user with no history. The copy is immutable from the caller's point of
// view and safe to use for a whole recommendation call.
func (s *ProfileService) Snapshot(userId string) *model.UserProfile {
	lock := s.stripe(userId)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	profile, ok := s.profiles[userId]
	s.mu.RUnlock()
	if !ok {
		return model.NewUserProfile(userId)
	}
	return profile.Clone()
}

// target translates a feedback signal into the weight the EWMA moves toward.
func (s *ProfileService) target(event *model.FeedbackEvent) (float64, error) {
	switch event.Signal {
	case model.FeedbackLiked:
		return s.Feedback.LikedTarget, nil
	case model.FeedbackSkipped:
		return s.Feedback.SkippedTarget, nil
	case model.FeedbackListened:
		ratio := event.DurationRatio
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		// Half-listened is indifference; the extremes line up with the
		// skipped and liked targets.
		return 2*ratio - 1, nil
	}
	return 0, fmt.Errorf("unknown feedback signal %q", event.Signal)
}

// Record applies one feedback event to the user's profile and returns the
// interaction row to persist. The preference weight moves toward the
// signal's target by the configured step:
//
//	w <- w + alpha * (target - w)
//
// The rule is monotone toward the target, so repeated likes never decrease a
// weight, and it converges regardless of event order for a fixed signal.
func (s *ProfileService) Record(ctx context.Context, event *model.FeedbackEvent) (*model.Interaction, error) {
	_ = ctx
	if event == nil || event.UserId == "" || event.TrackId == "" {
		return nil, fmt.Errorf("feedback event missing user or track id")
	}
	target, err := s.target(event)
	if err != nil {
		return nil, err
	}

	eventTime := event.EventTime
	if eventTime.IsZero() {
		eventTime = time.Now()
	}
	interaction := &model.Interaction{
		UserId:    event.UserId,
		TrackId:   event.TrackId,
		Signal:    string(event.Signal),
		Value:     target,
		EventTime: eventTime,
	}

	lock := s.stripe(event.UserId)
	lock.Lock()
	defer lock.Unlock()

	profile := s.getOrCreate(event.UserId)

	var weight *model.TrackWeight
	for _, w := range profile.Weights {
		if w.TrackId == event.TrackId {
			weight = w
			break
		}
	}
	if weight == nil {
		weight = &model.TrackWeight{TrackId: event.TrackId}
		profile.Weights = append(profile.Weights, weight)
	}
	weight.Weight += s.Feedback.Alpha * (target - weight.Weight)

	profile.History = append(profile.History, interaction)
	if limit := s.Feedback.HistoryLimit; limit > 0 && len(profile.History) > limit {
		profile.History = profile.History[len(profile.History)-limit:]
	}
	profile.UpdateTime = eventTime

	s.mu.Lock()
	s.dirty[event.UserId] = true
	s.mu.Unlock()

	return interaction, nil
}

// FlushDirty persists a snapshot of every profile modified since the last
// flush, using the BigQuery streaming inserter. Called periodically by the
// profile snapshot workflow. Returns the number of profiles written.
func (s *ProfileService) FlushDirty(ctx context.Context) (int, error) {
	s.mu.Lock()
	userIds := make([]string, 0, len(s.dirty))
	for userId := range s.dirty {
		userIds = append(userIds, userId)
	}
	s.dirty = make(map[string]bool)
	s.mu.Unlock()

	if len(userIds) == 0 {
		return 0, nil
	}

	snapshots := make([]*model.UserProfile, 0, len(userIds))
	for _, userId := range userIds {
		snapshots = append(snapshots, s.Snapshot(userId))
	}

	inserter := s.BigQueryClient.Dataset(s.DatasetName).Table(s.ProfileTable).Inserter()
	if err := inserter.Put(ctx, snapshots); err != nil {
		// Put the users back so the next flush retries them.
		s.mu.Lock()
		for _, userId := range userIds {
			s.dirty[userId] = true
		}
		s.mu.Unlock()
		return 0, err
	}
	return len(snapshots), nil
}

// LoadAll restores the newest persisted snapshot of every user into memory.
// Run once at startup, before the feedback listeners attach.
func (s *ProfileService) LoadAll(ctx context.Context) (int, error) {
	queryText := fmt.Sprintf(QryLatestProfiles, s.GetFQN())
	q := s.BigQueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		profile := &model.UserProfile{}
		err := itr.Next(profile)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, err
		}
		s.profiles[profile.UserId] = profile
		count++
	}
	return count, nil
}
