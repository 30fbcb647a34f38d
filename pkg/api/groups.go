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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sndctl/sndctl/pkg/models"
)

type groupsResponse struct {
	Groups []models.Group `json:"groups"`
}

func (s *Server) getGroups(w http.ResponseWriter, r *http.Request) {
	if _, err := s.registry.Discover(r.Context(), false); err != nil {
		writeError(w, "Discovery failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	groups := s.registry.Groups()
	if groups == nil {
		groups = []models.Group{}
	}

	s.writeJSON(w, groupsResponse{Groups: groups})
}

// groupWith joins {name} to the group coordinated by {coordinator}.
func (s *Server) groupWith(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	coordinator := vars["coordinator"]

	member, ok := s.lookupSpeaker(r.Context(), name)
	if !ok {
		speakerNotFound(w, name)
		return
	}

	coordDev, err := s.coordinatorFor(r.Context(), coordinator)
	if err != nil {
		speakerNotFound(w, coordinator)
		return
	}

	uid, err := coordDev.UID(r.Context())
	if err != nil {
		s.writeCommandResult(w, err, "group")
		return
	}

	s.writeCommandResult(w, member.Join(r.Context(), uid), "group")
}

func (s *Server) ungroup(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, ok := s.lookupSpeaker(r.Context(), name)
	if !ok {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.Unjoin(r.Context()), "ungroup")
}

// partyMode joins every other speaker to {name}'s group.
func (s *Server) partyMode(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	coordDev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	uid, err := coordDev.UID(r.Context())
	if err != nil {
		s.writeCommandResult(w, err, "party mode")
		return
	}

	names, err := s.registry.Discover(r.Context(), false)
	if err != nil {
		s.writeCommandResult(w, err, "party mode")
		return
	}

	joined := 0

	for _, other := range names {
		if other == name {
			continue
		}

		dev, ok := s.registry.Lookup(other)
		if !ok {
			continue
		}

		if joinErr := dev.Join(r.Context(), uid); joinErr != nil {
			s.logger.Warn().Err(joinErr).Str("speaker", other).Msg("could not join party group")
			continue
		}

		joined++
	}

	s.writeJSON(w, models.CommandResponse{
		Success: true,
		Message: "Joined " + strconv.Itoa(joined) + " speakers",
	})
}

// ungroupAll dissolves every group by making each speaker standalone.
func (s *Server) ungroupAll(w http.ResponseWriter, r *http.Request) {
	names, err := s.registry.Discover(r.Context(), false)
	if err != nil {
		s.writeCommandResult(w, err, "ungroup all")
		return
	}

	for _, name := range names {
		dev, ok := s.registry.Lookup(name)
		if !ok {
			continue
		}

		if unjoinErr := dev.Unjoin(r.Context()); unjoinErr != nil {
			s.logger.Warn().Err(unjoinErr).Str("speaker", name).Msg("could not ungroup speaker")
		}
	}

	s.writeJSON(w, models.CommandResponse{Success: true})
}

func (s *Server) setGroupVolume(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	volume, err := strconv.Atoi(vars["volume"])
	if err != nil || volume < 0 || volume > 100 {
		writeError(w, "Volume must be an integer between 0 and 100", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetGroupVolume(r.Context(), volume), "set group volume")
}

// transferPlayback moves the current stream from {name}'s group to
// {target}: the target joins the source group, then the source drops
// out, which promotes the target to coordinator without interrupting
// playback.
func (s *Server) transferPlayback(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	target := vars["target"]

	source, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	targetDev, ok := s.lookupSpeaker(r.Context(), target)
	if !ok {
		speakerNotFound(w, target)
		return
	}

	uid, err := source.UID(r.Context())
	if err != nil {
		s.writeCommandResult(w, err, "transfer")
		return
	}

	if err := targetDev.Join(r.Context(), uid); err != nil {
		s.writeCommandResult(w, err, "transfer")
		return
	}

	s.writeCommandResult(w, source.Unjoin(r.Context()), "transfer")
}
