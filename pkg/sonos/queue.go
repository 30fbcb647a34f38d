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

package sonos

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sndctl/sndctl/pkg/models"
)

// ContentDirectory object IDs for the built-in containers.
const (
	objectQueue     = "Q:0"
	objectFavorites = "FV:2"
	objectPlaylists = "SQ:"
	objectRadio     = "R:0/0"
)

const browsePageSize = 100

func (d *Device) browse(ctx context.Context, objectID string, start, count int) (*didlLite, int, error) {
	values, err := d.invoke(ctx, svcContentDirectory, "Browse",
		soapArg{"ObjectID", objectID},
		soapArg{"BrowseFlag", "BrowseDirectChildren"},
		soapArg{"Filter", "*"},
		soapArg{"StartingIndex", strconv.Itoa(start)},
		soapArg{"RequestedCount", strconv.Itoa(count)},
		soapArg{"SortCriteria", ""},
	)
	if err != nil {
		return nil, 0, err
	}

	didl, err := parseDIDL(values["Result"])
	if err != nil {
		return nil, 0, err
	}

	total, _ := strconv.Atoi(values["TotalMatches"])

	return didl, total, nil
}

func (d *Device) browseAll(ctx context.Context, objectID string) ([]didlObject, error) {
	var objects []didlObject

	for start := 0; ; start += browsePageSize {
		didl, total, err := d.browse(ctx, objectID, start, browsePageSize)
		if err != nil {
			return nil, err
		}

		objects = append(objects, didl.Containers...)
		objects = append(objects, didl.Items...)

		if start+browsePageSize >= total || len(didl.Items)+len(didl.Containers) == 0 {
			break
		}
	}

	return objects, nil
}

// Queue returns the play queue. Positions are 1-based.
func (d *Device) Queue(ctx context.Context) ([]models.QueueItem, error) {
	objects, err := d.browseAll(ctx, objectQueue)
	if err != nil {
		return nil, err
	}

	items := make([]models.QueueItem, 0, len(objects))

	for i := range objects {
		o := &objects[i]
		items = append(items, models.QueueItem{
			Position:    i + 1,
			Title:       o.Title,
			Artist:      o.Creator,
			Album:       o.Album,
			AlbumArtURI: o.AlbumArtURI,
		})
	}

	return items, nil
}

// QueueLength returns the number of tracks in the queue without fetching
// their metadata.
func (d *Device) QueueLength(ctx context.Context) (int, error) {
	_, total, err := d.browse(ctx, objectQueue, 0, 1)
	return total, err
}

// QueuePosition returns the 1-based queue index of the current track,
// zero when nothing is queued.
func (d *Device) QueuePosition(ctx context.Context) (int, error) {
	track, err := d.CurrentTrack(ctx)
	if err != nil {
		return 0, err
	}

	return track.QueuePos, nil
}

// PlayFromQueue switches the transport to the queue and starts playback at
// the given 1-based track number.
func (d *Device) PlayFromQueue(ctx context.Context, track int) error {
	uid, err := d.UID(ctx)
	if err != nil {
		return err
	}

	_, err = d.invoke(ctx, svcAVTransport, "SetAVTransportURI",
		instanceArg(),
		soapArg{"CurrentURI", "x-rincon-queue:" + uid + "#0"},
		soapArg{"CurrentURIMetaData", ""},
	)
	if err != nil {
		return err
	}

	if err := d.seekTrack(ctx, track); err != nil {
		return err
	}

	return d.Play(ctx)
}

// ClearQueue removes every track from the queue.
func (d *Device) ClearQueue(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "RemoveAllTracksFromQueue", instanceArg())
	return err
}

// RemoveFromQueue deletes the 1-based track number from the queue.
func (d *Device) RemoveFromQueue(ctx context.Context, track int) error {
	_, err := d.invoke(ctx, svcAVTransport, "RemoveTrackFromQueue",
		instanceArg(),
		soapArg{"ObjectID", fmt.Sprintf("%s/%d", objectQueue, track)},
		soapArg{"UpdateID", "0"},
	)

	return err
}

// AddURIToQueue appends a playable URI (with its DIDL metadata) to the end
// of the queue and returns the 1-based position it landed at.
func (d *Device) AddURIToQueue(ctx context.Context, uri, metadata string) (int, error) {
	values, err := d.invoke(ctx, svcAVTransport, "AddURIToQueue",
		instanceArg(),
		soapArg{"EnqueuedURI", uri},
		soapArg{"EnqueuedURIMetaData", metadata},
		soapArg{"DesiredFirstTrackNumberEnqueued", "0"},
		soapArg{"EnqueueAsNext", "0"},
	)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(values["FirstTrackNumberEnqueued"])
}

// Favorites returns the household's Sonos favorites.
func (d *Device) Favorites(ctx context.Context) ([]models.Favorite, error) {
	objects, err := d.browseAll(ctx, objectFavorites)
	if err != nil {
		return nil, err
	}

	favorites := make([]models.Favorite, 0, len(objects))

	for i := range objects {
		o := &objects[i]
		favorites = append(favorites, models.Favorite{
			ID:          strconv.Itoa(i),
			Name:        o.Title,
			URI:         o.uri(),
			AlbumArtURI: o.AlbumArtURI,
		})
	}

	return favorites, nil
}

func (d *Device) findFavorite(ctx context.Context, name string) (*didlObject, error) {
	objects, err := d.browseAll(ctx, objectFavorites)
	if err != nil {
		return nil, err
	}

	for i := range objects {
		if strings.EqualFold(objects[i].Title, name) {
			return &objects[i], nil
		}
	}

	return nil, fmt.Errorf("favorite %q: %w", name, ErrItemNotFound)
}

// streamSchemes are URI schemes that bypass the queue; they are played by
// pointing the transport at the stream directly.
var streamSchemes = []string{
	"x-sonosapi-stream:",
	"x-sonosapi-radio:",
	"x-rincon-mp3radio:",
	"hls-radio:",
	"aac:",
}

func isStreamURI(uri string) bool {
	for _, scheme := range streamSchemes {
		if strings.HasPrefix(uri, scheme) {
			return true
		}
	}

	return false
}

func (d *Device) playObject(ctx context.Context, o *didlObject) error {
	uri := o.uri()

	if isStreamURI(uri) {
		_, err := d.invoke(ctx, svcAVTransport, "SetAVTransportURI",
			instanceArg(),
			soapArg{"CurrentURI", uri},
			soapArg{"CurrentURIMetaData", o.ResMD},
		)
		if err != nil {
			return err
		}

		return d.Play(ctx)
	}

	if err := d.ClearQueue(ctx); err != nil {
		return err
	}

	if _, err := d.AddURIToQueue(ctx, uri, o.ResMD); err != nil {
		return err
	}

	return d.PlayFromQueue(ctx, 1)
}

// PlayFavorite plays the named favorite, replacing the queue for
// queueable content and switching to the stream for radio favorites.
// Names match case-insensitively.
func (d *Device) PlayFavorite(ctx context.Context, name string) error {
	favorite, err := d.findFavorite(ctx, name)
	if err != nil {
		return err
	}

	return d.playObject(ctx, favorite)
}

// PlayFavoriteNumber plays the favorite at the given 1-based position in
// the favorites list.
func (d *Device) PlayFavoriteNumber(ctx context.Context, number int) error {
	objects, err := d.browseAll(ctx, objectFavorites)
	if err != nil {
		return err
	}

	if number < 1 || number > len(objects) {
		return fmt.Errorf("favorite %d: %w", number, ErrItemNotFound)
	}

	return d.playObject(ctx, &objects[number-1])
}

// AddFavoriteToQueue appends the named favorite to the queue and returns
// the position it was enqueued at.
func (d *Device) AddFavoriteToQueue(ctx context.Context, name string) (int, error) {
	favorite, err := d.findFavorite(ctx, name)
	if err != nil {
		return 0, err
	}

	return d.AddURIToQueue(ctx, favorite.uri(), favorite.ResMD)
}

// Playlists returns the saved Sonos playlists.
func (d *Device) Playlists(ctx context.Context) ([]models.Playlist, error) {
	objects, err := d.browseAll(ctx, objectPlaylists)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(objects))

	for i := range objects {
		playlists = append(playlists, models.Playlist{
			ID:   objects[i].ID,
			Name: objects[i].Title,
		})
	}

	return playlists, nil
}

func (d *Device) findPlaylist(ctx context.Context, name string) (*didlObject, error) {
	objects, err := d.browseAll(ctx, objectPlaylists)
	if err != nil {
		return nil, err
	}

	for i := range objects {
		if strings.EqualFold(objects[i].Title, name) {
			return &objects[i], nil
		}
	}

	return nil, fmt.Errorf("playlist %q: %w", name, ErrItemNotFound)
}

// PlaylistTracks returns the tracks of the named playlist.
func (d *Device) PlaylistTracks(ctx context.Context, name string) ([]models.QueueItem, error) {
	playlist, err := d.findPlaylist(ctx, name)
	if err != nil {
		return nil, err
	}

	objects, err := d.browseAll(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.QueueItem, 0, len(objects))

	for i := range objects {
		o := &objects[i]
		tracks = append(tracks, models.QueueItem{
			Position:    i + 1,
			Title:       o.Title,
			Artist:      o.Creator,
			Album:       o.Album,
			AlbumArtURI: o.AlbumArtURI,
		})
	}

	return tracks, nil
}

// AddPlaylistToQueue appends the named playlist to the queue and returns
// the position of its first track.
func (d *Device) AddPlaylistToQueue(ctx context.Context, name string) (int, error) {
	playlist, err := d.findPlaylist(ctx, name)
	if err != nil {
		return 0, err
	}

	return d.AddURIToQueue(ctx, playlist.uri(), playlist.ResMD)
}

// RadioStations returns the favorite TuneIn stations.
func (d *Device) RadioStations(ctx context.Context) ([]models.RadioStation, error) {
	objects, err := d.browseAll(ctx, objectRadio)
	if err != nil {
		return nil, err
	}

	stations := make([]models.RadioStation, 0, len(objects))

	for i := range objects {
		stations = append(stations, models.RadioStation{
			Name: objects[i].Title,
			URI:  objects[i].uri(),
		})
	}

	return stations, nil
}

// PlayRadioStation tunes the named favorite station.
func (d *Device) PlayRadioStation(ctx context.Context, name string) error {
	objects, err := d.browseAll(ctx, objectRadio)
	if err != nil {
		return err
	}

	for i := range objects {
		if strings.EqualFold(objects[i].Title, name) {
			return d.playObject(ctx, &objects[i])
		}
	}

	return fmt.Errorf("radio station %q: %w", name, ErrItemNotFound)
}
