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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayModeMatrixRoundTrips(t *testing.T) {
	for mode, flags := range playModes {
		got, err := playModeFor(flags.shuffle, flags.repeat)
		require.NoError(t, err, "mode %s", mode)
		assert.Equal(t, mode, got)
	}
}

func TestPlayModeForRejectsUnknownRepeat(t *testing.T) {
	_, err := playModeFor(false, "sometimes")
	assert.ErrorIs(t, err, ErrUnknownPlayMode)
}

func TestSetShufflePreservesRepeat(t *testing.T) {
	d, player := testDevice(t, map[string]string{
		"GetTransportSettings": soapResponse("GetTransportSettings", map[string]string{"PlayMode": "REPEAT_ALL"}),
		"SetPlayMode":          soapResponse("SetPlayMode", nil),
	})

	require.NoError(t, d.SetShuffle(context.Background(), true))

	assert.Contains(t, player.requests["SetPlayMode"], "<NewPlayMode>SHUFFLE</NewPlayMode>")
}

func TestSetRepeatPreservesShuffle(t *testing.T) {
	d, player := testDevice(t, map[string]string{
		"GetTransportSettings": soapResponse("GetTransportSettings", map[string]string{"PlayMode": "SHUFFLE_NOREPEAT"}),
		"SetPlayMode":          soapResponse("SetPlayMode", nil),
	})

	require.NoError(t, d.SetRepeat(context.Background(), "one"))

	assert.Contains(t, player.requests["SetPlayMode"], "<NewPlayMode>SHUFFLE_REPEAT_ONE</NewPlayMode>")
}

func TestSetRepeatRejectsUnknownMode(t *testing.T) {
	d, _ := testDevice(t, nil)

	err := d.SetRepeat(context.Background(), "twice")
	assert.ErrorIs(t, err, ErrUnknownPlayMode)
}

func TestShuffleAndRepeatFromUnknownPlayMode(t *testing.T) {
	d, _ := testDevice(t, map[string]string{
		"GetTransportSettings": soapResponse("GetTransportSettings", map[string]string{"PlayMode": "WEIRD_FIRMWARE"}),
	})

	shuffle, err := d.Shuffle(context.Background())
	require.NoError(t, err)
	assert.False(t, shuffle)

	repeat, err := d.Repeat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RepeatOff, repeat)
}

func TestSleepTimerRemaining(t *testing.T) {
	d, _ := testDevice(t, map[string]string{
		"GetRemainingSleepTimerDuration": soapResponse("GetRemainingSleepTimerDuration",
			map[string]string{"RemainingSleepTimerDuration": "0:29:30"}),
	})

	seconds, err := d.SleepTimer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 29*60+30, seconds)
}

func TestSleepTimerNotRunning(t *testing.T) {
	d, _ := testDevice(t, map[string]string{
		"GetRemainingSleepTimerDuration": soapResponse("GetRemainingSleepTimerDuration",
			map[string]string{"RemainingSleepTimerDuration": ""}),
	})

	seconds, err := d.SleepTimer(context.Background())
	require.NoError(t, err)

	assert.Zero(t, seconds)
}

func TestSetSleepTimerFormatsDuration(t *testing.T) {
	d, player := testDevice(t, map[string]string{
		"ConfigureSleepTimer": soapResponse("ConfigureSleepTimer", nil),
	})

	require.NoError(t, d.SetSleepTimer(context.Background(), 45*60))
	assert.Contains(t, player.requests["ConfigureSleepTimer"], "<NewSleepTimerDuration>00:45:00</NewSleepTimerDuration>")

	require.NoError(t, d.SetSleepTimer(context.Background(), 0))
	assert.Contains(t, player.requests["ConfigureSleepTimer"], "<NewSleepTimerDuration></NewSleepTimerDuration>")
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock   string
		seconds int
		wantErr bool
	}{
		{"0:00:00", 0, false},
		{"0:01:30", 90, false},
		{"1:02:03", 3723, false},
		{"90", 0, true},
		{"a:b:c", 0, true},
	}

	for _, tt := range tests {
		seconds, err := parseClock(tt.clock)
		if tt.wantErr {
			assert.Error(t, err, "clock %q", tt.clock)
			continue
		}

		require.NoError(t, err, "clock %q", tt.clock)
		assert.Equal(t, tt.seconds, seconds, "clock %q", tt.clock)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", formatClock(0))
	assert.Equal(t, "00:45:00", formatClock(45*60))
	assert.Equal(t, "01:02:03", formatClock(3723))
}
