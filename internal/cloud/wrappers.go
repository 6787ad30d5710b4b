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

// Package cloud provides components for interacting with Google Cloud services.
// This file implements a decorator around the generative model handle that
// adds rate limiting and retry behavior. Vertex AI enforces per-minute
// quotas; the wrapper keeps the text-channel scorer inside them and retries
// transient failures instead of surfacing them to the signal path.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// QuotaAwareGenerativeAIModel wraps a generative model configuration and
// handle with a rate limiter. Calls that would exceed the limit are paused
// and re-queued rather than rejected.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The generation settings applied to every call.
	ModelName               string                       // The Vertex AI model name.
	ModelHandle             *genai.Models                // The underlying model handle.
	RateLimit               rate.Limiter                 // Controls request frequency.
}

// NewQuotaAwareModel creates a QuotaAwareGenerativeAIModel allowing a burst
// of requestsPerSecond calls, replenished once per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		RateLimit:               *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateContent intercepts calls to the underlying model to enforce the
// rate limit and retry transient failures. The retry count travels in the
// context so recursive attempts share a budget.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content) (resp *genai.GenerateContentResponse, err error) {
	if q.RateLimit.Allow() {
		resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.GenerativeContentConfig)
		if err != nil {
			retryCount, ok := ctx.Value(retryCountKey{}).(int)
			if !ok {
				retryCount = 0
			}
			if retryCount > MaxRetries {
				return nil, errors.New("failed generation on max retries")
			}
			errCtx := context.WithValue(ctx, retryCountKey{}, retryCount+1)
			time.Sleep(retryBackoff)
			return q.GenerateContent(errCtx, content)
		}
		return resp, err
	}
	// Rate limited: pause this request and re-queue it.
	time.Sleep(rateLimitPause)
	return q.GenerateContent(ctx, content)
}

type retryCountKey struct{}

const (
	retryBackoff   = 15 * time.Second
	rateLimitPause = 5 * time.Second
)
