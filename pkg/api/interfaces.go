/*
 * Copyright 2025 The sndctl Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"time"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/registry"
)

// SpeakerRegistry is the registry surface the HTTP and MCP servers
// consume. *registry.Registry is the production implementation.
type SpeakerRegistry interface {
	Discover(ctx context.Context, force bool) ([]string, error)
	Lookup(name string) (registry.Device, bool)
	ResolveCoordinator(name string) (registry.Device, error)
	Info(name string) (registry.Info, bool)
	Groups() []models.Group
	CapturedAt() time.Time
}

var _ SpeakerRegistry = (*registry.Registry)(nil)
