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

// Package models contains the shared data types for the sndctl API surface.
package models

// Speaker is the detailed view of a single zone player returned by the
// speaker info endpoints. Optional capabilities (battery on portable
// speakers, volume on satellites) are pointer fields so "absent" is
// representable without sentinel values.
type Speaker struct {
	Name          string   `json:"name"`
	IPAddress     string   `json:"ip_address,omitempty"`
	Model         string   `json:"model,omitempty"`
	Volume        *int     `json:"volume,omitempty"`
	IsMuted       bool     `json:"is_muted"`
	PlaybackState string   `json:"playback_state,omitempty"`
	CurrentTrack  string   `json:"current_track,omitempty"`
	IsCoordinator bool     `json:"is_coordinator"`
	GroupMembers  []string `json:"group_members,omitempty"`
	BatteryLevel  *int     `json:"battery_level,omitempty"`
	IsOffline     bool     `json:"is_offline"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// Group is one zone group: the coordinator plus its visible members.
// Bonded satellites (subs, surrounds) never appear in Members.
type Group struct {
	Coordinator string   `json:"coordinator"`
	Members     []string `json:"members"`
}

// Track describes the currently playing item on a coordinator.
type Track struct {
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Duration string `json:"duration,omitempty"`
	Position string `json:"position,omitempty"`
	QueuePos int    `json:"queue_position,omitempty"`
}

// QueueItem is a single entry in a speaker's play queue. Position is 1-based
// to match what the controller apps display.
type QueueItem struct {
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	AlbumArtURI string `json:"album_art_uri,omitempty"`
}

// Favorite is a Sonos favorite (system-wide, not per speaker).
type Favorite struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URI         string `json:"uri,omitempty"`
	AlbumArtURI string `json:"album_art_uri,omitempty"`
}

// Playlist is a saved Sonos playlist.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RadioStation is a favorite TuneIn radio station.
type RadioStation struct {
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}
