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

type queueResponse struct {
	Queue []models.QueueItem `json:"queue"`
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	queue, err := dev.Queue(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	if queue == nil {
		queue = []models.QueueItem{}
	}

	s.writeJSON(w, queueResponse{Queue: queue})
}

func (s *Server) getQueueLength(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	length, err := dev.QueueLength(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]int{"length": length})
}

func (s *Server) getQueuePosition(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	position, err := dev.QueuePosition(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	s.writeJSON(w, map[string]int{"position": position})
}

// playFromQueue resumes queue playback at the current position.
func (s *Server) playFromQueue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	position, err := dev.QueuePosition(r.Context())
	if err != nil || position < 1 {
		position = 1
	}

	s.writeCommandResult(w, dev.PlayFromQueue(r.Context(), position), "play from queue")
}

func (s *Server) playFromQueueNumber(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	number, err := strconv.Atoi(vars["number"])
	if err != nil || number < 1 {
		writeError(w, "Track number must be a positive integer", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.PlayFromQueue(r.Context(), number), "play from queue")
}

func (s *Server) clearQueue(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.ClearQueue(r.Context()), "clear queue")
}

func (s *Server) removeFromQueue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	number, err := strconv.Atoi(vars["number"])
	if err != nil || number < 1 {
		writeError(w, "Track number must be a positive integer", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.RemoveFromQueue(r.Context(), number), "remove from queue")
}

func (s *Server) addFavoriteToQueue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	favorite := vars["favorite"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	position, err := dev.AddFavoriteToQueue(r.Context(), favorite)
	if err != nil {
		s.writeCommandResult(w, err, "add favorite to queue")
		return
	}

	s.writeJSON(w, models.CommandResponse{
		Success: true,
		Message: "Queued at position " + strconv.Itoa(position),
	})
}

func (s *Server) addPlaylistToQueue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	playlist := vars["playlist"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	position, err := dev.AddPlaylistToQueue(r.Context(), playlist)
	if err != nil {
		s.writeCommandResult(w, err, "add playlist to queue")
		return
	}

	s.writeJSON(w, models.CommandResponse{
		Success: true,
		Message: "Queued at position " + strconv.Itoa(position),
	})
}
