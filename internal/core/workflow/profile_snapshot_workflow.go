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

// This file implements the background profile snapshotter. Profiles mutate in
// memory on every feedback event; this worker periodically flushes the dirty
// ones to the BigQuery profile table so a restart can warm load them back.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-mood-music/internal/core/services"
)

// ProfileSnapshotWorker flushes dirty profiles on a fixed interval.
type ProfileSnapshotWorker struct {
	profiles *services.ProfileService
	interval time.Duration
}

// NewProfileSnapshotWorker is the constructor for the ProfileSnapshotWorker.
// A non-positive interval falls back to one minute.
func NewProfileSnapshotWorker(profiles *services.ProfileService, interval time.Duration) *ProfileSnapshotWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ProfileSnapshotWorker{profiles: profiles, interval: interval}
}

// Start launches the flush loop in a goroutine. The loop stops, after a
// final flush, when the context is canceled.
func (w *ProfileSnapshotWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.flush(context.Background())
				slog.Info("profile snapshot worker stopped")
				return
			case <-ticker.C:
				w.flush(ctx)
			}
		}
	}()
}

func (w *ProfileSnapshotWorker) flush(ctx context.Context) {
	count, err := w.profiles.FlushDirty(ctx)
	if err != nil {
		slog.Error("failed to flush profile snapshots", "error", err)
		return
	}
	if count > 0 {
		slog.Info("flushed profile snapshots", "profiles", count)
	}
}
