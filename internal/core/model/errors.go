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
// file declares the error taxonomy shared by the signal adapter and the
// fusion engine. Per-channel errors (invalid signal, unknown mapping) are
// recoverable: the caller drops the offending channel and continues. Only
// ErrNoSignal is fatal to a recommendation call, because retrying without new
// input cannot succeed.
package model

import (
	"errors"
	"fmt"
)

// ErrNoSignal indicates that no usable channel reading remained after
// normalization. It is the only engine error surfaced to recommend callers.
var ErrNoSignal = errors.New("no usable emotion signal")

// ErrInvalidSignal is the sentinel that InvalidSignalError matches.
var ErrInvalidSignal = errors.New("invalid signal")

// ErrChannelMapping is the sentinel that ChannelMappingError matches.
var ErrChannelMapping = errors.New("channel mapping failure")

// InvalidSignalError reports malformed or out-of-range raw input on a single
// channel. Local to that channel; the caller decides whether to drop the
// channel or abort fusion.
type InvalidSignalError struct {
	Channel Channel
	Reason  string
}

func (e InvalidSignalError) Error() string {
	return fmt.Sprintf("invalid signal on channel %q: %s", e.Channel, e.Reason)
}

func (e InvalidSignalError) Is(target error) bool {
	return target == ErrInvalidSignal
}

// ChannelMappingError reports an unknown channel or a raw label that the
// configured per-channel table cannot map onto the shared taxonomy.
type ChannelMappingError struct {
	Channel Channel
	Label   string
}

func (e ChannelMappingError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("no taxonomy mapping configured for channel %q", e.Channel)
	}
	return fmt.Sprintf("channel %q label %q has no taxonomy mapping", e.Channel, e.Label)
}

func (e ChannelMappingError) Is(target error) bool {
	return target == ErrChannelMapping
}
