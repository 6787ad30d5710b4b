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

// This file implements the text-signal workflow: scoring a free-text mood
// description with a generative model and parsing the response into a
// RawSignal for the text channel. It backs the recommend API when the caller
// sends text instead of classifier output.
package workflow

import (
	"context"
	"fmt"
	"text/template"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/commands"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// TextSignalWorkflow scores user text against the emotion taxonomy via a
// rate-limited generative model.
type TextSignalWorkflow struct {
	cor.BaseCommand
	config *cloud.Config
	chain  cor.Chain
}

// Execute runs the underlying chain.
func (w *TextSignalWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Score is a synchronous convenience wrapper used by the API surface: it runs
// the chain over a single text and returns the resulting RawSignal.
func (w *TextSignalWorkflow) Score(ctx context.Context, text string) (*model.RawSignal, error) {
	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, text)

	w.chain.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for name, err := range chainCtx.GetErrors() {
			return nil, fmt.Errorf("text scoring failed at %s: %w", name, err)
		}
	}
	signal, ok := chainCtx.Get(cor.CtxOut).(*model.RawSignal)
	if !ok {
		return nil, fmt.Errorf("text scoring produced no signal")
	}
	return signal, nil
}

func (w *TextSignalWorkflow) initializeChain(
	serviceClients *cloud.ServiceClients,
	agentModelName string,
	promptTemplate *template.Template) {

	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewTextEmotionScorer(
		"text-emotion-scorer",
		w.config,
		serviceClients.AgentModels[agentModelName],
		promptTemplate))
	out.AddCommand(commands.NewEmotionScoresJsonToStruct("emotion-scores-to-struct"))
	w.chain = out
}

// NewTextSignalWorkflow is the constructor for the TextSignalWorkflow. It
// parses the prompt template from the configuration and wires the two-step
// scoring chain.
func NewTextSignalWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string) *TextSignalWorkflow {

	promptTemplate, err := template.New("text-emotion-template").Parse(config.PromptTemplates.TextEmotion)
	if err != nil {
		panic(err) // The app cannot run without a valid prompt template.
	}

	pipeline := &TextSignalWorkflow{
		BaseCommand: *cor.NewBaseCommand("text-signal-pipeline"),
		config:      config,
	}
	pipeline.initializeChain(serviceClients, agentModelName, promptTemplate)
	return pipeline
}
