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
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/registry"
)

var errNoSpeakers = errors.New("no speakers available")

// anyDevice returns a device handle for system-wide reads (favorites,
// playlists, radio stations live in the household, not on one speaker).
func (s *Server) anyDevice(ctx context.Context) (registry.Device, error) {
	names, err := s.registry.Discover(ctx, false)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if dev, ok := s.registry.Lookup(name); ok {
			return dev, nil
		}
	}

	return nil, errNoSpeakers
}

type favoritesResponse struct {
	Favorites []models.Favorite `json:"favorites"`
}

func (s *Server) getFavorites(w http.ResponseWriter, r *http.Request) {
	dev, err := s.anyDevice(r.Context())
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	favorites, err := dev.Favorites(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	if favorites == nil {
		favorites = []models.Favorite{}
	}

	s.writeJSON(w, favoritesResponse{Favorites: favorites})
}

func (s *Server) playFavorite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	favorite := vars["favorite"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.PlayFavorite(r.Context(), favorite), "play favorite")
}

func (s *Server) playFavoriteNumber(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	number, err := strconv.Atoi(vars["number"])
	if err != nil || number < 1 {
		writeError(w, "Favorite number must be a positive integer", http.StatusBadRequest)
		return
	}

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.PlayFavoriteNumber(r.Context(), number), "play favorite")
}

type playlistsResponse struct {
	Playlists []models.Playlist `json:"playlists"`
}

func (s *Server) getPlaylists(w http.ResponseWriter, r *http.Request) {
	dev, err := s.anyDevice(r.Context())
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	playlists, err := dev.Playlists(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	if playlists == nil {
		playlists = []models.Playlist{}
	}

	s.writeJSON(w, playlistsResponse{Playlists: playlists})
}

type playlistTracksResponse struct {
	Playlist string             `json:"playlist"`
	Tracks   []models.QueueItem `json:"tracks"`
}

func (s *Server) getPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	playlist := mux.Vars(r)["playlist"]

	dev, err := s.anyDevice(r.Context())
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	tracks, err := dev.PlaylistTracks(r.Context(), playlist)
	if err != nil {
		writeError(w, "Playlist '"+playlist+"' not found: "+err.Error(), http.StatusNotFound)
		return
	}

	if tracks == nil {
		tracks = []models.QueueItem{}
	}

	s.writeJSON(w, playlistTracksResponse{Playlist: playlist, Tracks: tracks})
}

type radioStationsResponse struct {
	Stations []models.RadioStation `json:"stations"`
}

func (s *Server) getRadioStations(w http.ResponseWriter, r *http.Request) {
	dev, err := s.anyDevice(r.Context())
	if err != nil {
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	stations, err := dev.RadioStations(r.Context())
	if err != nil {
		deviceUnavailable(w, err)
		return
	}

	if stations == nil {
		stations = []models.RadioStation{}
	}

	s.writeJSON(w, radioStationsResponse{Stations: stations})
}

func (s *Server) playRadioStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	station := vars["station"]

	dev, err := s.coordinatorFor(r.Context(), name)
	if err != nil {
		speakerNotFound(w, name)
		return
	}

	s.writeCommandResult(w, dev.PlayRadioStation(r.Context(), station), "play radio station")
}
