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
	"fmt"
	"strings"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/sonos"
)

func playbackTools() []Tool {
	return []Tool{
		{
			Name:        "play_pause",
			Description: "Toggle playback on a speaker: pause when playing, play otherwise",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "next_track",
			Description: "Skip to the next track",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "previous_track",
			Description: "Go back to the previous track",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "get_current_track",
			Description: "Get the track currently playing on a speaker",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "get_volume",
			Description: "Get a speaker's volume (0-100)",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "set_volume",
			Description: "Set a speaker's volume (0-100)",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"volume": map[string]interface{}{
						"type":        "integer",
						"description": "Volume between 0 and 100",
					},
				},
				"required": []string{"speaker_name", "volume"},
			},
		},
		{
			Name:        "toggle_mute",
			Description: "Toggle mute on a speaker",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "set_shuffle",
			Description: "Turn shuffle on or off for a speaker's group",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"enabled": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether shuffle should be on",
					},
				},
				"required": []string{"speaker_name", "enabled"},
			},
		},
		{
			Name:        "set_repeat",
			Description: "Set the repeat mode for a speaker's group: off, all or one",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"description": "Repeat mode: off, all or one",
					},
				},
				"required": []string{"speaker_name", "mode"},
			},
		},
		{
			Name:        "set_sleep_timer",
			Description: "Arm a sleep timer in minutes; zero cancels it",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the speaker",
					},
					"minutes": map[string]interface{}{
						"type":        "integer",
						"description": "Minutes until the speaker stops, 0 to cancel",
					},
				},
				"required": []string{"speaker_name", "minutes"},
			},
		},
	}
}

func (s *Server) executePlayPause(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.coordinator(ctx, name)
	if err != nil {
		return nil, err
	}

	state, err := dev.TransportState(ctx)
	if err != nil {
		return nil, err
	}

	if state == sonos.StatePlaying {
		err = dev.Pause(ctx)
	} else {
		err = dev.Play(ctx)
	}

	if err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeNextTrack(ctx context.Context, args json.RawMessage) (interface{}, error) {
	return s.executeTransportCommand(ctx, args, "next")
}

func (s *Server) executePreviousTrack(ctx context.Context, args json.RawMessage) (interface{}, error) {
	return s.executeTransportCommand(ctx, args, "previous")
}

func (s *Server) executeTransportCommand(ctx context.Context, args json.RawMessage, command string) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.coordinator(ctx, name)
	if err != nil {
		return nil, err
	}

	switch command {
	case "next":
		err = dev.Next(ctx)
	case "previous":
		err = dev.Previous(ctx)
	}

	if err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeGetCurrentTrack(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.coordinator(ctx, name)
	if err != nil {
		return nil, err
	}

	return dev.CurrentTrack(ctx)
}

func (s *Server) executeGetVolume(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	volume, err := dev.Volume(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]int{"volume": volume}, nil
}

func (s *Server) executeSetVolume(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName string `json:"speaker_name"`
		Volume      int    `json:"volume"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" {
		return nil, fmt.Errorf("speaker_name is required")
	}

	if params.Volume < 0 || params.Volume > 100 {
		return nil, fmt.Errorf("volume must be between 0 and 100")
	}

	dev, err := s.lookup(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	if err := dev.SetVolume(ctx, params.Volume); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeToggleMute(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	muted, err := dev.Mute(ctx)
	if err != nil {
		return nil, err
	}

	if err := dev.SetMute(ctx, !muted); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return map[string]interface{}{"success": true, "muted": !muted}, nil
}

func (s *Server) executeSetShuffle(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName string `json:"speaker_name"`
		Enabled     bool   `json:"enabled"`
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

	if err := dev.SetShuffle(ctx, params.Enabled); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeSetRepeat(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName string `json:"speaker_name"`
		Mode        string `json:"mode"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" {
		return nil, fmt.Errorf("speaker_name is required")
	}

	mode := strings.ToLower(params.Mode)
	switch mode {
	case sonos.RepeatOff, sonos.RepeatAll, sonos.RepeatOne:
	default:
		return nil, fmt.Errorf("mode must be off, all or one")
	}

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	if err := dev.SetRepeat(ctx, mode); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeSetSleepTimer(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName string `json:"speaker_name"`
		Minutes     int    `json:"minutes"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" {
		return nil, fmt.Errorf("speaker_name is required")
	}

	if params.Minutes < 0 || params.Minutes > 1439 {
		return nil, fmt.Errorf("minutes must be between 0 and 1439")
	}

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	if err := dev.SetSleepTimer(ctx, params.Minutes*60); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}
