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

// This file defines the command that parses a downloaded catalog file into a
// TrackBatch. Catalog files carry the same JSON shape as the streaming topic
// payload, so both ingestion paths converge on one batch format before
// validation.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/model"
)

// CatalogFileParser reads a local catalog file and parses it into a
// TrackBatch.
type CatalogFileParser struct {
	cor.BaseCommand
}

// NewCatalogFileParser is the constructor for the CatalogFileParser command.
func NewCatalogFileParser(name string) *CatalogFileParser {
	return &CatalogFileParser{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute reads the temp file produced by the download command and parses
// its contents.
func (c *CatalogFileParser) Execute(context cor.Context) {
	fileName := context.Get(c.GetInputParam()).(string)

	data, err := os.ReadFile(fileName)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to read catalog file %s: %w", fileName, err))
		return
	}

	batch := &model.TrackBatch{}
	if err := json.Unmarshal(data, batch); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to parse catalog file %s: %w", fileName, err))
		return
	}

	for _, track := range batch.Tracks {
		if track == nil {
			continue
		}
		if track.Id == "" {
			track.Id = uuid.NewSHA1(uuid.NameSpaceURL,
				[]byte(fmt.Sprintf("%s|%s", track.Artist, track.Title))).String()
		}
		if track.CreateDate.IsZero() {
			track.CreateDate = time.Now()
		}
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), batch)
}
