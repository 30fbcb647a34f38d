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

package registry

import (
	"context"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/scan"
	"github.com/sndctl/sndctl/pkg/sonos"
)

// Device is the control surface the registry hands out for a speaker.
// *sonos.Device is the production implementation; tests substitute fakes.
// Transport-affecting calls (Play through SetSleepTimer, queue mutation)
// must go to the handle returned by ResolveCoordinator, never to a group
// member directly.
type Device interface {
	Address() string
	PlayerName(ctx context.Context) (string, error)
	UID(ctx context.Context) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	IsCoordinator(ctx context.Context) (bool, error)
	GroupMembers(ctx context.Context) ([]string, error)
	ZoneGroupState(ctx context.Context) (*sonos.ZoneGroupState, error)
	Model(ctx context.Context) (string, error)
	BatteryLevel(ctx context.Context) (int, bool, error)

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, position string) error
	TransportState(ctx context.Context) (string, error)
	CurrentTrack(ctx context.Context) (models.Track, error)

	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, volume int) error
	Mute(ctx context.Context) (bool, error)
	SetMute(ctx context.Context, mute bool) error
	GroupVolume(ctx context.Context) (int, error)
	SetGroupVolume(ctx context.Context, volume int) error

	Shuffle(ctx context.Context) (bool, error)
	SetShuffle(ctx context.Context, shuffle bool) error
	Repeat(ctx context.Context) (string, error)
	SetRepeat(ctx context.Context, repeat string) error
	Crossfade(ctx context.Context) (bool, error)
	SetCrossfade(ctx context.Context, enabled bool) error
	SleepTimer(ctx context.Context) (int, error)
	SetSleepTimer(ctx context.Context, seconds int) error

	Queue(ctx context.Context) ([]models.QueueItem, error)
	QueueLength(ctx context.Context) (int, error)
	QueuePosition(ctx context.Context) (int, error)
	PlayFromQueue(ctx context.Context, track int) error
	ClearQueue(ctx context.Context) error
	RemoveFromQueue(ctx context.Context, track int) error
	AddURIToQueue(ctx context.Context, uri, metadata string) (int, error)

	Favorites(ctx context.Context) ([]models.Favorite, error)
	PlayFavorite(ctx context.Context, name string) error
	PlayFavoriteNumber(ctx context.Context, number int) error
	AddFavoriteToQueue(ctx context.Context, name string) (int, error)
	Playlists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, name string) ([]models.QueueItem, error)
	AddPlaylistToQueue(ctx context.Context, name string) (int, error)
	RadioStations(ctx context.Context) ([]models.RadioStation, error)
	PlayRadioStation(ctx context.Context, name string) error

	Join(ctx context.Context, coordinatorUID string) error
	Unjoin(ctx context.Context) error
}

var _ Device = (*sonos.Device)(nil)

// Discoverer is the primary (multicast) discovery path.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// Scanner is the fallback IP-range discovery path.
type Scanner interface {
	ScanSubnet(ctx context.Context, subnet string) ([]scan.Candidate, error)
}

var _ Scanner = (*scan.Sweeper)(nil)

// Connector creates a device handle for an address. Handle creation does
// no I/O.
type Connector func(addr string) Device
