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
	"strings"

	"github.com/gorilla/mux"

	"github.com/sndctl/sndctl/pkg/sonos"
)

func (s *Server) playPause(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	state, err := dev.TransportState(r.Context())
	if err != nil {
		s.writeCommandResult(w, err, "playpause")
		return
	}

	if state == sonos.StatePlaying {
		s.writeCommandResult(w, dev.Pause(r.Context()), "pause")
		return
	}

	s.writeCommandResult(w, dev.Play(r.Context()), "play")
}

func (s *Server) nextTrack(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.Next(r.Context()), "next")
}

func (s *Server) previousTrack(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.Previous(r.Context()), "previous")
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	track, err := dev.CurrentTrack(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, track)
}

func (s *Server) seek(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	position := vars["position"]
	if !validClockPosition(position) {
		writeError(w, "Invalid position '"+position+"', expected HH:MM:SS", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.Seek(r.Context(), position), "seek")
}

// validClockPosition accepts H:MM:SS style positions with one to three
// segments, so "90", "1:30" and "0:01:30" all pass.
func validClockPosition(position string) bool {
	parts := strings.Split(position, ":")
	if len(parts) == 0 || len(parts) > 3 {
		return false
	}

	for _, p := range parts {
		if p == "" {
			return false
		}

		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}

	return true
}

func (s *Server) getVolume(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, ok := s.lookupSpeaker(r.Context(), name)
	if !ok {
		speakerNotFound(w, name)
		return
	}

	volume, err := dev.Volume(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]int{"volume": volume})
}

func (s *Server) setVolume(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	volume, err := strconv.Atoi(vars["volume"])
	if err != nil || volume < 0 || volume > 100 {
		writeError(w, "Volume must be an integer between 0 and 100", http.StatusBadRequest)
		return
	}

	dev, ok := s.lookupSpeaker(r.Context(), name)
	if !ok {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetVolume(r.Context(), volume), "set volume")
}

func (s *Server) toggleMute(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, ok := s.lookupSpeaker(r.Context(), name)
	if !ok {
		speakerNotFound(w, name)
		return
	}

	muted, err := dev.Mute(r.Context())
	if err != nil {
		s.writeCommandResult(w, err, "mute")
		return
	}

	s.writeCommandResult(w, dev.SetMute(r.Context(), !muted), "mute")
}

func (s *Server) getShuffle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	shuffle, err := dev.Shuffle(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"shuffle": shuffle})
}

func (s *Server) setShuffle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	state, ok := parseBoolState(vars["state"])
	if !ok {
		writeError(w, "State must be 'on' or 'off'", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetShuffle(r.Context(), state), "set shuffle")
}

func (s *Server) getRepeat(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	repeat, err := dev.Repeat(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]string{"repeat": repeat})
}

func (s *Server) setRepeat(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	mode := strings.ToLower(vars["mode"])
	switch mode {
	case sonos.RepeatOff, sonos.RepeatAll, sonos.RepeatOne:
	default:
		writeError(w, "Repeat mode must be 'off', 'all' or 'one'", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetRepeat(r.Context(), mode), "set repeat")
}

func (s *Server) getCrossfade(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	crossfade, err := dev.Crossfade(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]bool{"crossfade": crossfade})
}

func (s *Server) setCrossfade(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	state, ok := parseBoolState(vars["state"])
	if !ok {
		writeError(w, "State must be 'on' or 'off'", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetCrossfade(r.Context(), state), "set crossfade")
}

func (s *Server) getSleepTimer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	seconds, err := dev.SleepTimer(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]int{"sleep_timer_seconds": seconds})
}

func (s *Server) setSleepTimer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	minutes, err := strconv.Atoi(vars["duration"])
	if err != nil || minutes < 0 || minutes > 1439 {
		writeError(w, "Duration must be minutes between 0 and 1439", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetSleepTimer(r.Context(), minutes*60), "set sleep timer")
}

func (s *Server) cancelSleepTimer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.SetSleepTimer(r.Context(), 0), "cancel sleep timer")
}

func parseBoolState(state string) (value, ok bool) {
	switch strings.ToLower(state) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	default:
		return false, false
	}
}
