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
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/registry"
	"github.com/sndctl/sndctl/pkg/version"
)

type statusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Speakers      int    `json:"speakers"`
	LastDiscovery string `json:"last_discovery,omitempty"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "ok", Version: version.GetVersion()}

	if capturedAt := s.registry.CapturedAt(); !capturedAt.IsZero() {
		resp.LastDiscovery = capturedAt.UTC().Format(time.RFC3339)
	}

	names, err := s.registry.Discover(r.Context(), false)
	if err == nil {
		resp.Speakers = len(names)
	}

	s.writeJSON(w, resp)
}

type speakersResponse struct {
	Speakers []string `json:"speakers"`
}

func (s *Server) getSpeakers(w http.ResponseWriter, r *http.Request) {
	names, err := s.registry.Discover(r.Context(), false)
	if err != nil {
		writeError(w, "Discovery failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, speakersResponse{Speakers: names})
}

func (s *Server) rediscover(w http.ResponseWriter, r *http.Request) {
	names, err := s.registry.Discover(r.Context(), true)
	if err != nil {
		writeError(w, "Discovery failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, speakersResponse{Speakers: names})
}

func (s *Server) getSpeakerInfo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, ok := s.lookupSpeaker(r.Context(), name)
	if !ok {
		speakerNotFound(w, name)
		return
	}

	s.writeJSON(w, BuildSpeaker(r.Context(), s.registry, name, dev))
}

// BuildSpeaker assembles the full speaker view. Individual probes are
// best effort: a speaker that stops answering mid-read is reported as
// offline with whatever fields were collected. Shared with the MCP
// tools, which expose the same view.
func BuildSpeaker(ctx context.Context, reg SpeakerRegistry, name string, dev registry.Device) models.Speaker {
	speaker := models.Speaker{Name: name, IPAddress: dev.Address()}

	if info, ok := reg.Info(name); ok {
		speaker.IsCoordinator = info.IsCoordinator
		speaker.GroupMembers = info.GroupMembers
	}

	if model, err := dev.Model(ctx); err == nil {
		speaker.Model = model
	}

	if volume, err := dev.Volume(ctx); err == nil {
		speaker.Volume = &volume
	} else {
		speaker.IsOffline = true
		speaker.ErrorMessage = err.Error()

		return speaker
	}

	if muted, err := dev.Mute(ctx); err == nil {
		speaker.IsMuted = muted
	}

	if state, err := dev.TransportState(ctx); err == nil {
		speaker.PlaybackState = state
	}

	if track, err := dev.CurrentTrack(ctx); err == nil && track.Title != "" {
		speaker.CurrentTrack = track.Title
		if track.Artist != "" {
			speaker.CurrentTrack = track.Artist + " - " + track.Title
		}
	}

	if level, ok, err := dev.BatteryLevel(ctx); err == nil && ok {
		speaker.BatteryLevel = &level
	}

	return speaker
}
