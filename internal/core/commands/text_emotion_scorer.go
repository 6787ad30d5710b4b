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

// This file defines the command that turns free text into a raw emotion
// signal using a generative model. It backs the text channel when the caller
// supplies a mood description instead of pre-scored classifier output.
//
// Logic Flow:
//  1. It receives the user's text from the context.
//  2. It builds a prompt from a Go template, injecting the taxonomy labels
//     and an example of the desired JSON output (few-shot prompting) so the
//     model returns scores over exactly the configured labels.
//  3. It sends the prompt through the rate-limited model wrapper, which
//     handles quota pauses and retries.
//  4. It places the raw JSON string response into the context for the next
//     command to parse into a RawSignal.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// TextEmotionScorer is a command that asks a generative model to score a
// piece of user text against the emotion taxonomy.
type TextEmotionScorer struct {
	cor.BaseCommand
	config                   *cloud.Config
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel
	template                 *template.Template
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewTextEmotionScorer is the constructor for the TextEmotionScorer command.
func NewTextEmotionScorer(
	name string,
	config *cloud.Config,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *TextEmotionScorer {

	out := &TextEmotionScorer{
		BaseCommand:       *cor.NewBaseCommand(name),
		config:            config,
		generativeAIModel: generativeAIModel,
		template:          template}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// GenerateParams creates the map of dynamic data injected into the prompt
// template.
func (t *TextEmotionScorer) GenerateParams(context cor.Context) map[string]interface{} {
	params := make(map[string]interface{})
	params["LABELS"] = strings.Join(t.config.Taxonomy.Labels, ", ")

	// A complete well-formed sample response keeps the model's output
	// structure stable across runs.
	exampleSignal, _ := json.Marshal(model.GetExampleRawSignal())
	params["EXAMPLE_JSON"] = string(exampleSignal)

	params["TEXT"] = context.Get(t.GetInputParam()).(string)
	return params
}

// Execute prompts the model and emits its raw JSON response.
func (t *TextEmotionScorer) Execute(context cor.Context) {
	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(context)); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	out, err := cloud.GenerateTextResponse(
		context.GetContext(),
		t.geminiInputTokenCounter,
		t.geminiOutputTokenCounter,
		t.geminiRetryCounter,
		0,
		t.generativeAIModel,
		cloud.NewTextContent(buffer.String()))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("gemini request failed: %w", err))
		return
	}

	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), out)
}
