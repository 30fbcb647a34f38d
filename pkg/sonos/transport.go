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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sndctl/sndctl/pkg/models"
)

// Transport states reported by GetTransportInfo.
const (
	StatePlaying       = "PLAYING"
	StatePaused        = "PAUSED_PLAYBACK"
	StateStopped       = "STOPPED"
	StateTransitioning = "TRANSITIONING"
	StateUnknown       = "UNKNOWN"
)

// Repeat modes accepted by SetRepeat.
const (
	RepeatOff = "off"
	RepeatAll = "all"
	RepeatOne = "one"
)

// ErrUnknownPlayMode is returned for repeat modes outside off/one/all.
var ErrUnknownPlayMode = errors.New("unknown play mode")

func instanceArg() soapArg {
	return soapArg{"InstanceID", "0"}
}

// Play starts playback. Must target a group coordinator.
func (d *Device) Play(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "Play", instanceArg(), soapArg{"Speed", "1"})
	return err
}

// Pause pauses playback.
func (d *Device) Pause(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "Pause", instanceArg())
	return err
}

// Stop halts playback.
func (d *Device) Stop(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "Stop", instanceArg())
	return err
}

// Next skips to the next track.
func (d *Device) Next(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "Next", instanceArg())
	return err
}

// Previous returns to the previous track.
func (d *Device) Previous(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "Previous", instanceArg())
	return err
}

// Seek jumps to a position in the current track, given as HH:MM:SS.
func (d *Device) Seek(ctx context.Context, position string) error {
	_, err := d.invoke(ctx, svcAVTransport, "Seek",
		instanceArg(), soapArg{"Unit", "REL_TIME"}, soapArg{"Target", position})

	return err
}

func (d *Device) seekTrack(ctx context.Context, track int) error {
	_, err := d.invoke(ctx, svcAVTransport, "Seek",
		instanceArg(), soapArg{"Unit", "TRACK_NR"}, soapArg{"Target", strconv.Itoa(track)})

	return err
}

// TransportState returns the current transport state
// (PLAYING/PAUSED_PLAYBACK/STOPPED/TRANSITIONING), or UNKNOWN when the
// device reports nothing usable.
func (d *Device) TransportState(ctx context.Context) (string, error) {
	values, err := d.invoke(ctx, svcAVTransport, "GetTransportInfo", instanceArg())
	if err != nil {
		return StateUnknown, err
	}

	state := values["CurrentTransportState"]
	if state == "" {
		state = StateUnknown
	}

	return state, nil
}

// CurrentTrack returns the track the coordinator is playing, with its
// queue position and timing.
func (d *Device) CurrentTrack(ctx context.Context) (models.Track, error) {
	values, err := d.invoke(ctx, svcAVTransport, "GetPositionInfo", instanceArg())
	if err != nil {
		return models.Track{}, err
	}

	track := models.Track{
		Duration: values["TrackDuration"],
		Position: values["RelTime"],
	}

	if n, convErr := strconv.Atoi(values["Track"]); convErr == nil {
		track.QueuePos = n
	}

	didl, err := parseDIDL(values["TrackMetaData"])
	if err != nil {
		// Radio streams sometimes ship broken metadata; the position info
		// is still useful.
		d.log.Debug().Err(err).Str("device", d.addr).Msg("unparseable track metadata")
		return track, nil
	}

	if len(didl.Items) > 0 {
		track.Title = didl.Items[0].Title
		track.Artist = didl.Items[0].Creator
		track.Album = didl.Items[0].Album
	}

	return track, nil
}

// Volume returns the master volume (0-100).
func (d *Device) Volume(ctx context.Context) (int, error) {
	values, err := d.invoke(ctx, svcRenderingControl, "GetVolume",
		instanceArg(), soapArg{"Channel", "Master"})
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(values["CurrentVolume"])
}

// SetVolume sets the master volume, clamped to 0-100.
func (d *Device) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}

	_, err := d.invoke(ctx, svcRenderingControl, "SetVolume",
		instanceArg(), soapArg{"Channel", "Master"}, soapArg{"DesiredVolume", strconv.Itoa(volume)})

	return err
}

// Mute reports whether the device is muted.
func (d *Device) Mute(ctx context.Context) (bool, error) {
	values, err := d.invoke(ctx, svcRenderingControl, "GetMute",
		instanceArg(), soapArg{"Channel", "Master"})
	if err != nil {
		return false, err
	}

	return values["CurrentMute"] == "1", nil
}

// SetMute mutes or unmutes the device.
func (d *Device) SetMute(ctx context.Context, mute bool) error {
	desired := "0"
	if mute {
		desired = "1"
	}

	_, err := d.invoke(ctx, svcRenderingControl, "SetMute",
		instanceArg(), soapArg{"Channel", "Master"}, soapArg{"DesiredMute", desired})

	return err
}

// playModes maps the AVTransport play mode matrix to (shuffle, repeat).
var playModes = map[string]struct {
	shuffle bool
	repeat  string
}{
	"NORMAL":             {false, RepeatOff},
	"SHUFFLE_NOREPEAT":   {true, RepeatOff},
	"SHUFFLE":            {true, RepeatAll},
	"REPEAT_ALL":         {false, RepeatAll},
	"REPEAT_ONE":         {false, RepeatOne},
	"SHUFFLE_REPEAT_ONE": {true, RepeatOne},
}

func playModeFor(shuffle bool, repeat string) (string, error) {
	for mode, flags := range playModes {
		if flags.shuffle == shuffle && flags.repeat == repeat {
			return mode, nil
		}
	}

	return "", fmt.Errorf("%w: shuffle=%v repeat=%q", ErrUnknownPlayMode, shuffle, repeat)
}

func (d *Device) playMode(ctx context.Context) (shuffle bool, repeat string, err error) {
	values, err := d.invoke(ctx, svcAVTransport, "GetTransportSettings", instanceArg())
	if err != nil {
		return false, "", err
	}

	flags, ok := playModes[values["PlayMode"]]
	if !ok {
		return false, RepeatOff, nil
	}

	return flags.shuffle, flags.repeat, nil
}

func (d *Device) setPlayMode(ctx context.Context, shuffle bool, repeat string) error {
	mode, err := playModeFor(shuffle, repeat)
	if err != nil {
		return err
	}

	_, err = d.invoke(ctx, svcAVTransport, "SetPlayMode",
		instanceArg(), soapArg{"NewPlayMode", mode})

	return err
}

// Shuffle reports whether shuffle is active.
func (d *Device) Shuffle(ctx context.Context) (bool, error) {
	shuffle, _, err := d.playMode(ctx)
	return shuffle, err
}

// SetShuffle toggles shuffle while preserving the repeat mode.
func (d *Device) SetShuffle(ctx context.Context, shuffle bool) error {
	_, repeat, err := d.playMode(ctx)
	if err != nil {
		return err
	}

	return d.setPlayMode(ctx, shuffle, repeat)
}

// Repeat returns the repeat mode: "off", "one" or "all".
func (d *Device) Repeat(ctx context.Context) (string, error) {
	_, repeat, err := d.playMode(ctx)
	return repeat, err
}

// SetRepeat sets the repeat mode while preserving shuffle.
func (d *Device) SetRepeat(ctx context.Context, repeat string) error {
	repeat = strings.ToLower(repeat)
	if repeat != RepeatOff && repeat != RepeatOne && repeat != RepeatAll {
		return fmt.Errorf("%w: %q", ErrUnknownPlayMode, repeat)
	}

	shuffle, _, err := d.playMode(ctx)
	if err != nil {
		return err
	}

	return d.setPlayMode(ctx, shuffle, repeat)
}

// Crossfade reports whether crossfade is enabled.
func (d *Device) Crossfade(ctx context.Context) (bool, error) {
	values, err := d.invoke(ctx, svcAVTransport, "GetCrossfadeMode", instanceArg())
	if err != nil {
		return false, err
	}

	return values["CrossfadeMode"] == "1", nil
}

// SetCrossfade enables or disables crossfade.
func (d *Device) SetCrossfade(ctx context.Context, enabled bool) error {
	mode := "0"
	if enabled {
		mode = "1"
	}

	_, err := d.invoke(ctx, svcAVTransport, "SetCrossfadeMode",
		instanceArg(), soapArg{"CrossfadeMode", mode})

	return err
}

// SleepTimer returns the remaining sleep timer in seconds, zero when no
// timer is running.
func (d *Device) SleepTimer(ctx context.Context) (int, error) {
	values, err := d.invoke(ctx, svcAVTransport, "GetRemainingSleepTimerDuration", instanceArg())
	if err != nil {
		return 0, err
	}

	remaining := values["RemainingSleepTimerDuration"]
	if remaining == "" {
		return 0, nil
	}

	return parseClock(remaining)
}

// SetSleepTimer arms the sleep timer for the given number of seconds; zero
// cancels it.
func (d *Device) SetSleepTimer(ctx context.Context, seconds int) error {
	duration := ""
	if seconds > 0 {
		duration = formatClock(seconds)
	}

	_, err := d.invoke(ctx, svcAVTransport, "ConfigureSleepTimer",
		instanceArg(), soapArg{"NewSleepTimerDuration", duration})

	return err
}

func parseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad clock value %q", clock)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}

	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}

	s, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}

	return h*3600 + m*60 + s, nil
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
