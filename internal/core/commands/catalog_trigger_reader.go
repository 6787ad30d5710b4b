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

// This file defines the entry point of the batch catalog workflow: turning a
// GCS bucket notification into a typed GCSObject the download command can
// act on.
//
// Logic Flow:
//  1. The raw Pub/Sub notification JSON arrives in the chain's input
//     parameter.
//  2. It is unmarshaled into a cloud.GCSPubSubNotification.
//  3. A simplified cloud.GCSObject (bucket, name, content type) is placed in
//     the output parameter, and additionally under the well-known GCS object
//     key so later commands in the chain can still reach it after the
//     flip-flop has moved on.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-mood-music/internal/cloud"
	"github.com/jaycherian/gcp-go-mood-music/internal/core/cor"
)

// CatalogTriggerReader converts a GCS pub/sub notification into a GCSObject.
type CatalogTriggerReader struct {
	cor.BaseCommand
}

// NewCatalogTriggerReader is the constructor for the CatalogTriggerReader
// command.
func NewCatalogTriggerReader(name string) *CatalogTriggerReader {
	return &CatalogTriggerReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the notification payload.
func (c *CatalogTriggerReader) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	notification := &cloud.GCSPubSubNotification{}
	if err := json.Unmarshal([]byte(in), notification); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	obj := &cloud.GCSObject{
		Bucket:   notification.Bucket,
		Name:     notification.Name,
		MIMEType: notification.ContentType,
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	// Keep a copy under the well-known key; downstream commands past the
	// immediate successor still need the object coordinates.
	context.Add(cloud.GetGCSObjectName(), obj)
	context.Add(c.GetOutputParam(), obj)
}
