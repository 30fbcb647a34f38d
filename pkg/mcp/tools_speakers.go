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

	"github.com/sndctl/sndctl/pkg/api"
	"github.com/sndctl/sndctl/pkg/models"
)

func speakerNameSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"speaker_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the speaker (its room name)",
			},
		},
		"required": []string{"speaker_name"},
	}
}

func speakerTools() []Tool {
	return []Tool{
		{
			Name:        "list_speakers",
			Description: "List the names of all Sonos speakers on the network",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "rediscover_speakers",
			Description: "Force a fresh network discovery, bypassing the cache",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_speaker_info",
			Description: "Get detailed information about one speaker: volume, playback state, current track, group role, battery",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "get_groups",
			Description: "List the current speaker groups with their coordinators and members",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "group_speakers",
			Description: "Join a speaker to the group coordinated by another speaker",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Speaker to add to the group",
					},
					"coordinator_name": map[string]interface{}{
						"type":        "string",
						"description": "Speaker whose group to join",
					},
				},
				"required": []string{"speaker_name", "coordinator_name"},
			},
		},
		{
			Name:        "ungroup_speaker",
			Description: "Remove a speaker from its group, making it standalone",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "party_mode",
			Description: "Group every speaker with the named speaker as coordinator",
			InputSchema: speakerNameSchema(),
		},
		{
			Name:        "ungroup_all",
			Description: "Dissolve all speaker groups",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "set_group_volume",
			Description: "Set the volume for a speaker's whole group (0-100)",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"speaker_name": map[string]interface{}{
						"type":        "string",
						"description": "Any speaker in the group",
					},
					"volume": map[string]interface{}{
						"type":        "integer",
						"description": "Group volume between 0 and 100",
					},
				},
				"required": []string{"speaker_name", "volume"},
			},
		},
	}
}

type speakerArgs struct {
	SpeakerName string `json:"speaker_name"`
}

func parseSpeakerArgs(args json.RawMessage) (string, error) {
	var params speakerArgs

	if err := json.Unmarshal(args, &params); err != nil {
		return "", err
	}

	if params.SpeakerName == "" {
		return "", fmt.Errorf("speaker_name is required")
	}

	return params.SpeakerName, nil
}

func (s *Server) executeListSpeakers(ctx context.Context) (interface{}, error) {
	names, err := s.registry.Discover(ctx, false)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"speakers": names}, nil
}

func (s *Server) executeRediscoverSpeakers(ctx context.Context) (interface{}, error) {
	names, err := s.registry.Discover(ctx, true)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"speakers": names}, nil
}

func (s *Server) executeGetSpeakerInfo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	return api.BuildSpeaker(ctx, s.registry, name, dev), nil
}

func (s *Server) executeGetGroups(ctx context.Context) (interface{}, error) {
	if _, err := s.registry.Discover(ctx, false); err != nil {
		return nil, err
	}

	groups := s.registry.Groups()
	if groups == nil {
		groups = []models.Group{}
	}

	return map[string]interface{}{"groups": groups}, nil
}

func (s *Server) executeGroupSpeakers(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		SpeakerName     string `json:"speaker_name"`
		CoordinatorName string `json:"coordinator_name"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.SpeakerName == "" || params.CoordinatorName == "" {
		return nil, fmt.Errorf("speaker_name and coordinator_name are required")
	}

	member, err := s.lookup(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	coordDev, err := s.coordinator(ctx, params.CoordinatorName)
	if err != nil {
		return nil, err
	}

	uid, err := coordDev.UID(ctx)
	if err != nil {
		return nil, err
	}

	if err := member.Join(ctx, uid); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeUngroupSpeaker(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	dev, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := dev.Unjoin(ctx); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executePartyMode(ctx context.Context, args json.RawMessage) (interface{}, error) {
	name, err := parseSpeakerArgs(args)
	if err != nil {
		return nil, err
	}

	coordDev, err := s.coordinator(ctx, name)
	if err != nil {
		return nil, err
	}

	uid, err := coordDev.UID(ctx)
	if err != nil {
		return nil, err
	}

	names, err := s.registry.Discover(ctx, false)
	if err != nil {
		return nil, err
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

		if joinErr := dev.Join(ctx, uid); joinErr != nil {
			s.logger.Warn().Err(joinErr).Str("speaker", other).Msg("could not join party group")
			continue
		}

		joined++
	}

	return map[string]interface{}{"success": true, "joined": joined}, nil
}

func (s *Server) executeUngroupAll(ctx context.Context) (interface{}, error) {
	names, err := s.registry.Discover(ctx, false)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		dev, ok := s.registry.Lookup(name)
		if !ok {
			continue
		}

		if unjoinErr := dev.Unjoin(ctx); unjoinErr != nil {
			s.logger.Warn().Err(unjoinErr).Str("speaker", name).Msg("could not ungroup speaker")
		}
	}

	return models.CommandResponse{Success: true}, nil
}

func (s *Server) executeSetGroupVolume(ctx context.Context, args json.RawMessage) (interface{}, error) {
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

	dev, err := s.coordinator(ctx, params.SpeakerName)
	if err != nil {
		return nil, err
	}

	if err := dev.SetGroupVolume(ctx, params.Volume); err != nil {
		return models.CommandResponse{Success: false, Message: err.Error()}, nil
	}

	return models.CommandResponse{Success: true}, nil
}
