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

// Package mcp exposes the speaker registry to MCP clients over a single
// JSON-RPC 2.0 endpoint, implemented directly without external MCP
// dependencies.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sndctl/sndctl/pkg/api"
	"github.com/sndctl/sndctl/pkg/logger"
	"github.com/sndctl/sndctl/pkg/registry"
	"github.com/sndctl/sndctl/pkg/version"
)

const protocolVersion = "2025-03-26"

// JSON-RPC 2.0 error codes used by the endpoint.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

// Server handles the MCP JSON-RPC endpoint.
type Server struct {
	registry api.SpeakerRegistry
	logger   logger.Logger
	enabled  bool
}

func NewServer(reg api.SpeakerRegistry, log logger.Logger, enabled bool) *Server {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Server{
		registry: reg,
		logger:   log,
		enabled:  enabled,
	}
}

// RegisterRoutes mounts the MCP endpoint on the router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	if !s.enabled {
		s.logger.Info().Msg("MCP server disabled, skipping route registration")
		return
	}

	mcpRouter := router.PathPrefix("/mcp").Subrouter()
	mcpRouter.HandleFunc("", s.handleMCPRequest).Methods(http.MethodPost, http.MethodOptions)
	mcpRouter.HandleFunc("/", s.handleMCPRequest).Methods(http.MethodPost, http.MethodOptions)
}

func (s *Server) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req JSONRPCRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, req.ID, codeParseError, "Parse error", err.Error())
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, req)
	case "notifications/initialized":
		s.writeSuccess(w, req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleToolsList(w, req)
	case "tools/call":
		s.handleToolCall(w, req, r)
	default:
		s.writeError(w, req.ID, codeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, req JSONRPCRequest) {
	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "sndctl-mcp",
			"version": version.GetVersion(),
		},
	}

	s.writeSuccess(w, req.ID, result)
}

func toolsDefinition() []Tool {
	var tools []Tool
	tools = append(tools, speakerTools()...)
	tools = append(tools, playbackTools()...)
	tools = append(tools, libraryTools()...)

	return tools
}

func (s *Server) handleToolsList(w http.ResponseWriter, req JSONRPCRequest) {
	s.writeSuccess(w, req.ID, map[string]interface{}{
		"tools": toolsDefinition(),
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, req JSONRPCRequest, r *http.Request) {
	var params ToolCallParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}

	result, err := s.executeTool(r.Context(), params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errUnknownTool) {
			s.writeError(w, req.ID, codeInvalidParams, "Unknown tool", fmt.Sprintf("Tool not found: %s", params.Name))
			return
		}

		s.writeError(w, req.ID, codeInternalError, "Internal error", err.Error())

		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.writeError(w, req.ID, codeInternalError, "Internal error", "Failed to marshal result")
		return
	}

	s.writeSuccess(w, req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(resultJSON),
			},
		},
	})
}

var errUnknownTool = errors.New("unknown tool")

func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "list_speakers":
		return s.executeListSpeakers(ctx)
	case "rediscover_speakers":
		return s.executeRediscoverSpeakers(ctx)
	case "get_speaker_info":
		return s.executeGetSpeakerInfo(ctx, args)
	case "get_groups":
		return s.executeGetGroups(ctx)
	case "group_speakers":
		return s.executeGroupSpeakers(ctx, args)
	case "ungroup_speaker":
		return s.executeUngroupSpeaker(ctx, args)
	case "party_mode":
		return s.executePartyMode(ctx, args)
	case "ungroup_all":
		return s.executeUngroupAll(ctx)
	case "set_group_volume":
		return s.executeSetGroupVolume(ctx, args)
	case "play_pause":
		return s.executePlayPause(ctx, args)
	case "next_track":
		return s.executeNextTrack(ctx, args)
	case "previous_track":
		return s.executePreviousTrack(ctx, args)
	case "get_current_track":
		return s.executeGetCurrentTrack(ctx, args)
	case "get_volume":
		return s.executeGetVolume(ctx, args)
	case "set_volume":
		return s.executeSetVolume(ctx, args)
	case "toggle_mute":
		return s.executeToggleMute(ctx, args)
	case "set_shuffle":
		return s.executeSetShuffle(ctx, args)
	case "set_repeat":
		return s.executeSetRepeat(ctx, args)
	case "set_sleep_timer":
		return s.executeSetSleepTimer(ctx, args)
	case "list_favorites":
		return s.executeListFavorites(ctx)
	case "play_favorite":
		return s.executePlayFavorite(ctx, args)
	case "list_playlists":
		return s.executeListPlaylists(ctx)
	case "get_queue":
		return s.executeGetQueue(ctx, args)
	case "clear_queue":
		return s.executeClearQueue(ctx, args)
	case "play_from_queue":
		return s.executePlayFromQueue(ctx, args)
	case "add_favorite_to_queue":
		return s.executeAddFavoriteToQueue(ctx, args)
	case "add_playlist_to_queue":
		return s.executeAddPlaylistToQueue(ctx, args)
	default:
		return nil, errUnknownTool
	}
}

// lookup finds a speaker handle by name, discovering first on a cold
// registry.
func (s *Server) lookup(ctx context.Context, name string) (registry.Device, error) {
	if dev, ok := s.registry.Lookup(name); ok {
		return dev, nil
	}

	if s.registry.CapturedAt().IsZero() {
		if _, err := s.registry.Discover(ctx, false); err != nil {
			return nil, err
		}

		if dev, ok := s.registry.Lookup(name); ok {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("speaker %q: %w", name, registry.ErrSpeakerNotFound)
}

// coordinator resolves the transport target for a named speaker.
func (s *Server) coordinator(ctx context.Context, name string) (registry.Device, error) {
	dev, err := s.registry.ResolveCoordinator(name)
	if err == nil {
		return dev, nil
	}

	if errors.Is(err, registry.ErrSpeakerNotFound) && s.registry.CapturedAt().IsZero() {
		if _, derr := s.registry.Discover(ctx, false); derr != nil {
			return nil, derr
		}

		return s.registry.ResolveCoordinator(name)
	}

	return nil, err
}

func (s *Server) writeSuccess(w http.ResponseWriter, id, result interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode MCP response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode MCP error response")
	}
}
