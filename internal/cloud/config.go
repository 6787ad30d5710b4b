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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. The configuration is assembled once at startup and
// treated as immutable afterwards: every component receives the *Config it
// needs explicitly, never through mutable global state.
//
// Structs:
//   - TaxonomyConfig: The fixed shared emotion label set.
//   - ChannelConfig: Per-channel reliability prior, priority, and label mapping.
//   - EmotionTarget: Feature-space centroid for one emotion label.
//   - RecommenderConfig: Mapper and ranker tuning knobs.
//   - FeedbackConfig: EWMA update constants for the feedback loop.
//   - BigQueryDataSource: Dataset and table names for persisted state.
//   - TopicSubscription: Configuration for a single Pub/Sub subscription.
//   - Storage: Cloud Storage bucket names.
//   - VertexAiLLMModel: Configuration for the text-channel scoring model.
//   - Config: The top-level aggregate.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for the
// text-channel scoring model. The inputs are short user-supplied mood texts
// from a controlled surface, so all categories pass through unblocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// TaxonomyConfig fixes the shared emotion label set every channel maps onto.
type TaxonomyConfig struct {
	Labels       []string `toml:"labels"`        // The ordered emotion labels (e.g., angry, disgust, fear, happy, neutral, sad, surprise).
	NeutralLabel string   `toml:"neutral_label"` // The label the fusion engine falls back to when every channel confidence is zero.
}

// Contains reports whether a label belongs to the taxonomy.
func (t TaxonomyConfig) Contains(label string) bool {
	for _, l := range t.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// ChannelConfig describes one sensing channel: how much the fusion engine
// trusts it, where it sits in the tie-break order, and how its classifier's
// native labels translate onto the shared taxonomy.
type ChannelConfig struct {
	ReliabilityPrior float64           `toml:"reliability_prior"` // Multiplied with the reading's own confidence to form the fusion weight.
	Priority         int               `toml:"priority"`          // Lower wins weight ties (facial=0, voice=1, text=2 per the design intent).
	Mapping          map[string]string `toml:"mapping"`           // Classifier label -> taxonomy label. Deterministic, loaded once.
}

// EmotionTarget is a feature-space centroid for one emotion label. Tempo is
// raw BPM, normalized the same way as track features.
type EmotionTarget struct {
	Valence      float64 `toml:"valence"`
	Energy       float64 `toml:"energy"`
	Danceability float64 `toml:"danceability"`
	Tempo        float64 `toml:"tempo"`
}

// RecommenderConfig holds the mapper and ranker tuning knobs. Exact numeric
// values are deliberately configuration, not code; the engine only fixes
// their required properties (determinism, monotonicity).
type RecommenderConfig struct {
	CandidateK             int     `toml:"candidate_k"`             // Nearest-neighbor count requested from the feature index.
	CollaborativeTopN      int     `toml:"collaborative_top_n"`     // Highest-weighted profile tracks considered.
	CollaborativeTolerance float64 `toml:"collaborative_tolerance"` // Max feature distance from the target for a collaborative pick.
	SimilarityWeight       float64 `toml:"similarity_weight"`       // Ranker weight for the content similarity score.
	CollaborativeWeight    float64 `toml:"collaborative_weight"`    // Ranker weight for the profile weight.
	DiversityThreshold     float64 `toml:"diversity_threshold"`     // Feature distance below which two tracks count as near-duplicates.
	DiversityDiscount      float64 `toml:"diversity_discount"`      // Score multiplier penalty applied to near-duplicates, in [0,1].
	DefaultCount           int     `toml:"default_count"`           // Result size when the caller does not specify one.
}

// FeedbackConfig holds the incremental update rule constants.
type FeedbackConfig struct {
	Alpha         float64 `toml:"alpha"`          // EWMA step size toward the signal target.
	LikedTarget   float64 `toml:"liked_target"`   // Target weight for a liked signal (+1).
	SkippedTarget float64 `toml:"skipped_target"` // Target weight for a skipped signal (-1).
	HistoryLimit  int     `toml:"history_limit"`  // Bounded per-user interaction window kept in memory.
}

// BigQueryDataSource represents the configuration for the BigQuery dataset
// backing the persisted state contracts.
type BigQueryDataSource struct {
	DatasetName      string `toml:"dataset"`           // The name of the BigQuery dataset.
	TrackTable       string `toml:"track_table"`       // The table holding the track catalog.
	ProfileTable     string `toml:"profile_table"`     // The table holding user-profile snapshots.
	InteractionTable string `toml:"interaction_table"` // The table holding the raw interaction history.
}

// TopicSubscription represents the configuration for a Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	CatalogInputBucket string `toml:"catalog_input_bucket"` // Bucket watched for batch catalog files.
	PreviewBucket      string `toml:"preview_bucket"`       // Bucket holding track preview audio.
}

// PromptTemplates holds the text templates for prompts sent to the
// text-channel scoring model.
type PromptTemplates struct {
	TextEmotion string `toml:"text_emotion"` // Template that asks for taxonomy scores over a user text.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large
// language model used as a text-channel emotion scorer.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It acts as the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing preview URLs.
	} `toml:"application"`
	Taxonomy           TaxonomyConfig               `toml:"taxonomy"`
	Channels           map[string]ChannelConfig     `toml:"channels"`
	EmotionTargets     map[string]EmotionTarget     `toml:"emotion_targets"`
	Recommender        RecommenderConfig            `toml:"recommender"`
	Feedback           FeedbackConfig               `toml:"feedback"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`
}

// NewConfig creates a new, initialized Config instance. The maps must be
// allocated up front so the TOML loader can populate them without nil checks.
func NewConfig() *Config {
	return &Config{
		Channels:           make(map[string]ChannelConfig),
		EmotionTargets:     make(map[string]EmotionTarget),
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}
