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

// Package services contains the business logic for the recommendation
// engine. This file centralizes the BigQuery SQL query strings used by the
// track and profile services. The queries use fmt.Sprintf format verbs as
// placeholders for values injected at runtime.
package services

const (
	// QryFindTrackById looks up a single catalog entry by its unique id.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the track table.
	// - `%s`: The track id.
	QryFindTrackById = "SELECT * FROM `%s` WHERE id = '%s'"

	// QryListTracks streams the whole catalog, oldest entries first. Used at
	// startup to warm the in-memory feature index from the persisted state.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the track table.
	QryListTracks = "SELECT * FROM `%s` ORDER BY create_date ASC"

	// QryLatestProfiles returns the newest persisted snapshot per user. The
	// profile table is append-only (each flush writes a fresh row), so the
	// current state of a user is the row with the latest update_time.
	//
	// How it works:
	// - `ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY update_time DESC)`
	//   numbers each user's snapshots newest first.
	// - `QUALIFY ... = 1` keeps only the newest snapshot per user. BigQuery
	//   requires a WHERE clause alongside QUALIFY, hence the `WHERE TRUE`.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the profile table.
	QryLatestProfiles = "SELECT * FROM `%s` WHERE TRUE QUALIFY ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY update_time DESC) = 1"
)
