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

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/registry"
)

func libraryTools() []Tool {
	return []Tool{
		{
			Name:        "list_favorites",
			Description: "List the Sonos favorites of the household",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "play_favorite",
			Description: "Play a favorite by name on a speaker",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"favorite_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the favorite, matched case-insensitively",
					},
				},
				"required": []string{"speaker_name", "favorite_name"},
			},
		},
		{
			Name:        "list_playlists",
			Description: "List the saved Sonos playlists",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_queue",
			Description: "Get the play queue of a speaker's group",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "clear_queue",
			Description: "Remove every track from a speaker's queue",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "play_from_queue",
			Description: "Start queue playback, optionally at a specific 1-based track number",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"track_number": map[string]interface{}{
						"type":        "integer",
						"description": "1-based queue position to start from",
					},
				},
				"required": []string{"speaker_name"},
			},
		},
		{
			Name:        "add_favorite_to_queue",
			Description: "Append a favorite to a speaker's queue without interrupting playback",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"favorite_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the favorite to enqueue",
					},
				},
				"required": []string{"speaker_name", "favorite_name"},
			},
		},
		{
			Name:        "add_playlist_to_queue",
			Description: "Append a saved playlist to a speaker's queue",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"playlist_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the playlist to enqueue",
					},
				},
				"required": []string{"speaker_name", "playlist_name"},
			},
		},
	}
}

var errNoSpeakers = errors.New("no speakers available")

// anyDevice returns a handle for household-wide reads.
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

func (s *Server) executeListFavorites(ctx context.Context) (interface{}, error) {
	dev, err := s.anyDevice(ctx)
	if err != nil {
		return nil, err
	}

	favorites, err := dev.Favorites(ctx)
	if err != nil {
		return nil, err
	}

	if favorites == nil {
		favorites = []models.Favorite{}
	}

	return map[string]interface{}{"favorites": favorites}, nil
}

func (s *Server) executePlayFavorite(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName  string `json:"speaker_name"`
		FavoriteName string `json:"favorite_name"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" || params.FavoriteName == "" {
		return nil, fmt.Errorf("speaker_name and favorite_name are required")
	}

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	if err := dev.PlayFavorite(ctx, params.FavoriteName); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeListPlaylists(ctx context.Context) (interface{}, error) {
	dev, err := s.anyDevice(ctx)
	if err != nil {
		return nil, err
	}

	playlists, err := dev.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	if playlists == nil {
		playlists = []models.Playlist{}
	}

	return map[string]interface{}{"playlists": playlists}, nil
}

func (s *Server) executeGetQueue(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.coordinator(ctx, name)
	if err != nil {
		return nil, err
	}

	queue, err := dev.Queue(ctx)
	if err != nil {
		return nil, err
	}

	if queue == nil {
		queue = []models.QueueItem{}
	}

	return map[string]interface{}{"queue": queue}, nil
}

func (s *Server) executeClearQueue(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.coordinator(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := dev.ClearQueue(ctx); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executePlayFromQueue(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName string `json:"speaker_name"`
		TrackNumber int    `json:"track_number"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" {
		return nil, fmt.Errorf("speaker_name is required")
	}

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	track := params.TrackNumber
	if track < 1 {
		if pos, posErr := dev.QueuePosition(ctx); posErr == nil && pos >= 1 {
			track = pos
		} else {
			track = 1
		}
	}

	if err := dev.PlayFromQueue(ctx, track); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeAddFavoriteToQueue(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName  string `json:"speaker_name"`
		FavoriteName string `json:"favorite_name"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" || params.FavoriteName == "" {
		return nil, fmt.Errorf("speaker_name and favorite_name are required")
	}

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	position, err := dev.AddFavoriteToQueue(ctx, params.FavoriteName)
	if err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return map[string]interface{}{"success": true, "position": position}, nil
}

func (s *Server) executeAddPlaylistToQueue(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName  string `json:"speaker_name"`
		PlaylistName string `json:"playlist_name"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" || params.PlaylistName == "" {
		return nil, fmt.Errorf("speaker_name and playlist_name are required")
	}

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	position, err := dev.AddPlaylistToQueue(ctx, params.PlaylistName)
	if err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return map[string]interface{}{"success": true, "position": position}, nil
}
