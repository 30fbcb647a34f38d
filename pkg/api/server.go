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

// Package api exposes the speaker registry over HTTP. Read endpoints
// return JSON resources, control endpoints return a success envelope so
// a speaker refusing a command is not an HTTP error.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	srHttp "github.com/sndctl/sndctl/pkg/http"
	"github.com/sndctl/sndctl/pkg/logger"
	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/registry"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

type Server struct {
	registry SpeakerRegistry
	router   *mux.Router
	apiKey   string
	cors     models.CORSConfig
	logger   logger.Logger

	srvMu      sync.Mutex
	httpServer *http.Server
}

func NewServer(reg SpeakerRegistry, options ...func(*Server)) *Server {
	s := &Server{
		registry: reg,
		router:   mux.NewRouter(),
		cors: models.CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: false,
		},
		logger: logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithAPIKey sets the key checked by the auth middleware. An empty key
// leaves the API open.
func WithAPIKey(key string) func(*Server) {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithCORS overrides the default allow-all CORS policy.
func WithCORS(cors models.CORSConfig) func(*Server) {
	return func(s *Server) {
		s.cors = cors
	}
}

// WithLogger sets the logger used by the server and its middleware.
func WithLogger(log logger.Logger) func(*Server) {
	return func(s *Server) {
		s.logger = log
	}
}

// Router returns the underlying router so additional handlers (the MCP
// endpoint) can be mounted before Start.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.cors, s.logger)
	})
	s.router.Use(srHttp.APIKeyMiddleware(s.apiKey, s.logger))

	s.router.HandleFunc("/api/status", s.getStatus).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/sonos").Subrouter()

	api.HandleFunc("/speakers", s.getSpeakers).Methods(http.MethodGet)
	api.HandleFunc("/rediscover", s.rediscover).Methods(http.MethodPost)
	api.HandleFunc("/groups", s.getGroups).Methods(http.MethodGet)
	api.HandleFunc("/favorites", s.getFavorites).Methods(http.MethodGet)
	api.HandleFunc("/playlists", s.getPlaylists).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{playlist}/tracks", s.getPlaylistTracks).Methods(http.MethodGet)
	api.HandleFunc("/radio-stations", s.getRadioStations).Methods(http.MethodGet)

	sp := api.PathPrefix("/speakers/{name}").Subrouter()

	sp.HandleFunc("", s.getSpeakerInfo).Methods(http.MethodGet)
	sp.HandleFunc("/playpause", s.playPause).Methods(http.MethodPost)
	sp.HandleFunc("/next", s.nextTrack).Methods(http.MethodPost)
	sp.HandleFunc("/previous", s.previousTrack).Methods(http.MethodPost)
	sp.HandleFunc("/track", s.getTrack).Methods(http.MethodGet)
	sp.HandleFunc("/seek/{position}", s.seek).Methods(http.MethodPost)

	sp.HandleFunc("/volume", s.getVolume).Methods(http.MethodGet)
	sp.HandleFunc("/volume/{volume}", s.setVolume).Methods(http.MethodPost)
	sp.HandleFunc("/mute", s.toggleMute).Methods(http.MethodPost)

	sp.HandleFunc("/group/{coordinator}", s.groupWith).Methods(http.MethodPost)
	sp.HandleFunc("/ungroup", s.ungroup).Methods(http.MethodPost)
	sp.HandleFunc("/party", s.partyMode).Methods(http.MethodPost)
	sp.HandleFunc("/ungroup-all", s.ungroupAll).Methods(http.MethodPost)
	sp.HandleFunc("/group-volume/{volume}", s.setGroupVolume).Methods(http.MethodPost)
	sp.HandleFunc("/transfer/{target}", s.transferPlayback).Methods(http.MethodPost)

	sp.HandleFunc("/shuffle", s.getShuffle).Methods(http.MethodGet)
	sp.HandleFunc("/shuffle/{state}", s.setShuffle).Methods(http.MethodPost)
	sp.HandleFunc("/repeat", s.getRepeat).Methods(http.MethodGet)
	sp.HandleFunc("/repeat/{mode}", s.setRepeat).Methods(http.MethodPost)
	sp.HandleFunc("/crossfade", s.getCrossfade).Methods(http.MethodGet)
	sp.HandleFunc("/crossfade/{state}", s.setCrossfade).Methods(http.MethodPost)

	sp.HandleFunc("/sleep", s.getSleepTimer).Methods(http.MethodGet)
	sp.HandleFunc("/sleep/{duration}", s.setSleepTimer).Methods(http.MethodPost)
	sp.HandleFunc("/sleep", s.cancelSleepTimer).Methods(http.MethodDelete)

	sp.HandleFunc("/play-favorite/{favorite}", s.playFavorite).Methods(http.MethodPost)
	sp.HandleFunc("/play-favorite-number/{number}", s.playFavoriteNumber).Methods(http.MethodPost)
	sp.HandleFunc("/play-radio/{station}", s.playRadioStation).Methods(http.MethodPost)

	sp.HandleFunc("/queue", s.getQueue).Methods(http.MethodGet)
	sp.HandleFunc("/queue", s.clearQueue).Methods(http.MethodDelete)
	sp.HandleFunc("/queue/length", s.getQueueLength).Methods(http.MethodGet)
	sp.HandleFunc("/queue/position", s.getQueuePosition).Methods(http.MethodGet)
	sp.HandleFunc("/queue/play", s.playFromQueue).Methods(http.MethodPost)
	sp.HandleFunc("/queue/play/{number}", s.playFromQueueNumber).Methods(http.MethodPost)
	sp.HandleFunc("/queue/{number}", s.removeFromQueue).Methods(http.MethodDelete)
	sp.HandleFunc("/queue/add-favorite/{favorite}", s.addFavoriteToQueue).Methods(http.MethodPost)
	sp.HandleFunc("/queue/add-playlist/{playlist}", s.addPlaylistToQueue).Methods(http.MethodPost)
}

// Start begins serving on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.srvMu.Lock()
	s.httpServer = srv
	s.srvMu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown drains in-flight requests and stops the server. A no-op when
// Start has not run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.httpServer
	s.srvMu.Unlock()

	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("error encoding response")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	resp := models.ErrorResponse{
		Message: message,
		Status:  status,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// lookupSpeaker finds a speaker by name, running one discovery cycle
// first when no snapshot exists yet so a cold server can still answer.
func (s *Server) lookupSpeaker(ctx context.Context, name string) (registry.Device, bool) {
	if dev, ok := s.registry.Lookup(name); ok {
		return dev, true
	}

	if s.registry.CapturedAt().IsZero() {
		if _, err := s.registry.Discover(ctx, false); err != nil {
			s.logger.Warn().Err(err).Msg("discovery failed during lookup")
		}

		return s.registry.Lookup(name)
	}

	return nil, false
}

// coordinatorFor resolves the device handle transport commands must
// target for the named speaker.
func (s *Server) coordinatorFor(ctx context.Context, name string) (registry.Device, error) {
	dev, err := s.registry.ResolveCoordinator(name)
	if err == nil {
		return dev, nil
	}

	if errors.Is(err, registry.ErrSpeakerNotFound) && s.registry.CapturedAt().IsZero() {
		if _, derr := s.registry.Discover(ctx, false); derr != nil {
			s.logger.Warn().Err(derr).Msg("discovery failed during coordinator resolution")
		}

		return s.registry.ResolveCoordinator(name)
	}

	return nil, err
}

func (s *Server) writeCommandResult(w http.ResponseWriter, err error, op string) {
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Msg("command failed")
		s.writeJSON(w, models.CommandResponse{Success: false, Message: err.Error()})

		return
	}

	s.writeJSON(w, models.CommandResponse{Success: true})
}

func speakerNotFound(w http.ResponseWriter, name string) {
	writeError(w, "Speaker '"+name+"' not found", http.StatusNotFound)
}

func deviceUnavailable(w http.ResponseWriter, err error) {
	writeError(w, "Speaker did not respond: "+err.Error(), http.StatusBadGateway)
}
