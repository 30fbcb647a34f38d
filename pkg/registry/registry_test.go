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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sndctl/sndctl/pkg/models"
	"github.com/sndctl/sndctl/pkg/scan"
	"github.com/sndctl/sndctl/pkg/sonos"
)

type fakeDevice struct {
	addr     string
	name     string
	uid      string
	visible  bool
	topology *sonos.ZoneGroupState

	visibleErr error
}

func (d *fakeDevice) Address() string { return d.addr }

func (d *fakeDevice) PlayerName(_ context.Context) (string, error) { return d.name, nil }

func (d *fakeDevice) UID(_ context.Context) (string, error) { return d.uid, nil }

func (d *fakeDevice) IsVisible(_ context.Context) (bool, error) {
	return d.visible, d.visibleErr
}

func (d *fakeDevice) IsCoordinator(_ context.Context) (bool, error) { return false, nil }

func (d *fakeDevice) GroupMembers(_ context.Context) ([]string, error) { return nil, nil }

func (d *fakeDevice) ZoneGroupState(_ context.Context) (*sonos.ZoneGroupState, error) {
	if d.topology == nil {
		return nil, errors.New("no topology")
	}

	return d.topology, nil
}

func (d *fakeDevice) Model(_ context.Context) (string, error) { return "Test One", nil }

func (d *fakeDevice) BatteryLevel(_ context.Context) (int, bool, error) { return 0, false, nil }

func (d *fakeDevice) Play(_ context.Context) error     { return nil }
func (d *fakeDevice) Pause(_ context.Context) error    { return nil }
func (d *fakeDevice) Stop(_ context.Context) error     { return nil }
func (d *fakeDevice) Next(_ context.Context) error     { return nil }
func (d *fakeDevice) Previous(_ context.Context) error { return nil }

func (d *fakeDevice) Seek(_ context.Context, _ string) error { return nil }

func (d *fakeDevice) TransportState(_ context.Context) (string, error) {
	return sonos.StateStopped, nil
}

func (d *fakeDevice) CurrentTrack(_ context.Context) (models.Track, error) {
	return models.Track{}, nil
}

func (d *fakeDevice) Volume(_ context.Context) (int, error)          { return 0, nil }
func (d *fakeDevice) SetVolume(_ context.Context, _ int) error       { return nil }
func (d *fakeDevice) Mute(_ context.Context) (bool, error)           { return false, nil }
func (d *fakeDevice) SetMute(_ context.Context, _ bool) error        { return nil }
func (d *fakeDevice) GroupVolume(_ context.Context) (int, error)     { return 0, nil }
func (d *fakeDevice) SetGroupVolume(_ context.Context, _ int) error  { return nil }
func (d *fakeDevice) Shuffle(_ context.Context) (bool, error)        { return false, nil }
func (d *fakeDevice) SetShuffle(_ context.Context, _ bool) error     { return nil }
func (d *fakeDevice) Repeat(_ context.Context) (string, error)       { return sonos.RepeatOff, nil }
func (d *fakeDevice) SetRepeat(_ context.Context, _ string) error    { return nil }
func (d *fakeDevice) Crossfade(_ context.Context) (bool, error)      { return false, nil }
func (d *fakeDevice) SetCrossfade(_ context.Context, _ bool) error   { return nil }
func (d *fakeDevice) SleepTimer(_ context.Context) (int, error)      { return 0, nil }
func (d *fakeDevice) SetSleepTimer(_ context.Context, _ int) error   { return nil }
func (d *fakeDevice) ClearQueue(_ context.Context) error             { return nil }
func (d *fakeDevice) PlayFromQueue(_ context.Context, _ int) error   { return nil }
func (d *fakeDevice) RemoveFromQueue(_ context.Context, _ int) error { return nil }
func (d *fakeDevice) QueueLength(_ context.Context) (int, error)     { return 0, nil }
func (d *fakeDevice) QueuePosition(_ context.Context) (int, error)   { return 0, nil }

func (d *fakeDevice) Queue(_ context.Context) ([]models.QueueItem, error) { return nil, nil }

func (d *fakeDevice) AddURIToQueue(_ context.Context, _, _ string) (int, error) { return 0, nil }

func (d *fakeDevice) Favorites(_ context.Context) ([]models.Favorite, error) { return nil, nil }

func (d *fakeDevice) PlayFavorite(_ context.Context, _ string) error { return nil }

func (d *fakeDevice) PlayFavoriteNumber(_ context.Context, _ int) error { return nil }

func (d *fakeDevice) AddFavoriteToQueue(_ context.Context, _ string) (int, error) { return 0, nil }

func (d *fakeDevice) Playlists(_ context.Context) ([]models.Playlist, error) { return nil, nil }

func (d *fakeDevice) PlaylistTracks(_ context.Context, _ string) ([]models.QueueItem, error) {
	return nil, nil
}

func (d *fakeDevice) AddPlaylistToQueue(_ context.Context, _ string) (int, error) { return 0, nil }

func (d *fakeDevice) RadioStations(_ context.Context) ([]models.RadioStation, error) {
	return nil, nil
}

func (d *fakeDevice) PlayRadioStation(_ context.Context, _ string) error { return nil }

func (d *fakeDevice) Join(_ context.Context, _ string) error { return nil }
func (d *fakeDevice) Unjoin(_ context.Context) error         { return nil }

type fakeDiscoverer struct {
	mu    sync.Mutex
	addrs [][]string
	calls int
}

func (f *fakeDiscoverer) Discover(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if len(f.addrs) == 0 {
		return nil, nil
	}

	addrs := f.addrs[0]
	if len(f.addrs) > 1 {
		f.addrs = f.addrs[1:]
	}

	return addrs, nil
}

func (f *fakeDiscoverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

type fakeScanner struct {
	mu         sync.Mutex
	candidates []scan.Candidate
	calls      int
}

func (f *fakeScanner) ScanSubnet(_ context.Context, _ string) ([]scan.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	return f.candidates, nil
}

func (f *fakeScanner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// topologyFor builds a ZoneGroupState where each inner slice is one
// group, coordinated by its first member.
func topologyFor(groups ...[]*fakeDevice) *sonos.ZoneGroupState {
	state := &sonos.ZoneGroupState{}

	for _, devices := range groups {
		group := sonos.ZoneGroup{Coordinator: devices[0].uid}

		for _, d := range devices {
			group.Members = append(group.Members, sonos.ZoneMember{
				UID:      d.uid,
				ZoneName: d.name,
			})
		}

		state.Groups = append(state.Groups, group)
	}

	return state
}

type testEnv struct {
	registry   *Registry
	discoverer *fakeDiscoverer
	scanner    *fakeScanner
	devices    map[string]*fakeDevice
	clock      *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestEnv(devices ...*fakeDevice) *testEnv {
	byAddr := make(map[string]*fakeDevice, len(devices))
	addrs := make([]string, 0, len(devices))

	for _, d := range devices {
		byAddr[d.addr] = d
		addrs = append(addrs, d.addr)
	}

	discoverer := &fakeDiscoverer{addrs: [][]string{addrs}}
	scanner := &fakeScanner{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	connect := func(addr string) Device {
		if d, ok := byAddr[addr]; ok {
			return d
		}

		return &fakeDevice{addr: addr, visibleErr: errors.New("unreachable")}
	}

	reg := New(discoverer, scanner, connect, Config{Subnet: "192.168.1"}, nil)
	reg.now = clock.Now

	return &testEnv{
		registry:   reg,
		discoverer: discoverer,
		scanner:    scanner,
		devices:    byAddr,
		clock:      clock,
	}
}

func speakerSet(names ...string) []*fakeDevice {
	devices := make([]*fakeDevice, 0, len(names))

	for i, name := range names {
		devices = append(devices, &fakeDevice{
			addr:    fmt.Sprintf("192.168.1.%d", 20+10*i),
			name:    name,
			uid:     "RINCON_" + name,
			visible: true,
		})
	}

	return devices
}

func TestDiscoverReturnsSortedNames(t *testing.T) {
	devices := speakerSet("Kitchen", "Bedroom", "Living Room")
	devices[0].topology = topologyFor([]*fakeDevice{devices[0]}, []*fakeDevice{devices[1]}, []*fakeDevice{devices[2]})

	env := newTestEnv(devices...)

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bedroom", "Kitchen", "Living Room"}, names)
}

func TestDiscoverServesFreshSnapshotFromCache(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, env.discoverer.callCount())

	env.clock.Advance(4 * time.Minute)

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kitchen"}, names)
	assert.Equal(t, 1, env.discoverer.callCount(), "fresh snapshot must not trigger a new cycle")
}

func TestDiscoverRefreshesExpiredSnapshot(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	env.clock.Advance(5*time.Minute + time.Second)

	_, err = env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, env.discoverer.callCount())
}

func TestDiscoverForceBypassesFreshCache(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	_, err = env.registry.Discover(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 2, env.discoverer.callCount())
}

func TestDiscoverSkipsInvisibleDevices(t *testing.T) {
	devices := speakerSet("Kitchen", "Sub")
	devices[1].visible = false

	env := newTestEnv(devices...)

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kitchen"}, names)
}

func TestDiscoverSkipsUnconfirmableCandidates(t *testing.T) {
	devices := speakerSet("Kitchen", "Bedroom")
	devices[1].visibleErr = errors.New("connection refused")

	env := newTestEnv(devices...)

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kitchen"}, names, "one dead candidate must not abort the others")
}

func TestDiscoverFallsBackToScanWhenMulticastEmpty(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	env.discoverer.mu.Lock()
	env.discoverer.addrs = [][]string{{}}
	env.discoverer.mu.Unlock()

	env.scanner.candidates = []scan.Candidate{{Addr: "192.168.1.20", ZoneName: "Kitchen"}}

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kitchen"}, names)
	assert.Equal(t, 1, env.scanner.callCount())
}

func TestDiscoverScannerNotUsedWhenMulticastSucceeds(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, env.scanner.callCount())
}

func TestTotalFailurePreservesPreviousSnapshot(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	capturedAt := env.registry.CapturedAt()
	require.False(t, capturedAt.IsZero())

	// Everything disappears from the network.
	env.discoverer.mu.Lock()
	env.discoverer.addrs = [][]string{{}}
	env.discoverer.mu.Unlock()

	env.clock.Advance(10 * time.Minute)

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Kitchen"}, names, "previous snapshot must survive a failed cycle")
	assert.Equal(t, capturedAt, env.registry.CapturedAt(), "failed cycle must not touch the snapshot timestamp")

	_, ok := env.registry.Lookup("Kitchen")
	assert.True(t, ok)
}

func TestTotalFailureWithNoSnapshotReturnsEmpty(t *testing.T) {
	env := newTestEnv()

	names, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	assert.Empty(t, names)
	assert.True(t, env.registry.CapturedAt().IsZero())
}

func TestDiscoverCyclesDoNotOverlap(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	var inFlight, maxInFlight int32

	blocking := &blockingDiscoverer{
		inner:       env.discoverer,
		inFlight:    &inFlight,
		maxInFlight: &maxInFlight,
	}
	env.registry.discoverer = blocking

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := env.registry.Discover(context.Background(), true)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "discovery cycles must be serialized")
}

type blockingDiscoverer struct {
	inner       Discoverer
	inFlight    *int32
	maxInFlight *int32
}

func (b *blockingDiscoverer) Discover(ctx context.Context) ([]string, error) {
	n := atomic.AddInt32(b.inFlight, 1)
	defer atomic.AddInt32(b.inFlight, -1)

	for {
		maxSeen := atomic.LoadInt32(b.maxInFlight)
		if n <= maxSeen || atomic.CompareAndSwapInt32(b.maxInFlight, maxSeen, n) {
			break
		}
	}

	time.Sleep(2 * time.Millisecond)

	return b.inner.Discover(ctx)
}

func TestResolveCoordinatorRedirectsMember(t *testing.T) {
	devices := speakerSet("Kitchen", "Bedroom")
	// Kitchen coordinates the group, Bedroom is a member.
	devices[0].topology = topologyFor(devices)

	env := newTestEnv(devices...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	dev, err := env.registry.ResolveCoordinator("Bedroom")
	require.NoError(t, err)

	assert.Equal(t, env.devices[devices[0].addr], dev, "member commands must land on the coordinator")
}

func TestResolveCoordinatorReturnsSelfForCoordinator(t *testing.T) {
	devices := speakerSet("Kitchen", "Bedroom")
	devices[0].topology = topologyFor(devices)

	env := newTestEnv(devices...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	dev, err := env.registry.ResolveCoordinator("Kitchen")
	require.NoError(t, err)

	assert.Equal(t, env.devices[devices[0].addr], dev)
}

func TestResolveCoordinatorUnknownNameFailsHard(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	_, err = env.registry.ResolveCoordinator("Garage")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSpeakerNotFound)
}

func TestResolveCoordinatorWithoutTopologyReturnsDeviceItself(t *testing.T) {
	// No device carries topology, so group state is unknown.
	env := newTestEnv(speakerSet("Kitchen")...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	dev, err := env.registry.ResolveCoordinator("Kitchen")
	require.NoError(t, err)

	assert.Equal(t, "Kitchen", dev.(*fakeDevice).name)
}

func TestGroupsOneEntryPerCoordinator(t *testing.T) {
	devices := speakerSet("Kitchen", "Bedroom", "Office")
	// Kitchen+Bedroom grouped, Office standalone.
	devices[0].topology = topologyFor(devices[:2], devices[2:])

	env := newTestEnv(devices...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	groups := env.registry.Groups()
	require.Len(t, groups, 2)

	assert.Equal(t, models.Group{Coordinator: "Kitchen", Members: []string{"Bedroom"}}, groups[0])
	assert.Equal(t, models.Group{Coordinator: "Office", Members: []string{}}, groups[1])
}

func TestInfoReportsGroupRole(t *testing.T) {
	devices := speakerSet("Kitchen", "Bedroom")
	devices[0].topology = topologyFor(devices)

	env := newTestEnv(devices...)

	_, err := env.registry.Discover(context.Background(), false)
	require.NoError(t, err)

	info, ok := env.registry.Info("Kitchen")
	require.True(t, ok)
	assert.True(t, info.IsCoordinator)
	assert.Equal(t, []string{"Bedroom"}, info.GroupMembers)

	info, ok = env.registry.Info("Bedroom")
	require.True(t, ok)
	assert.False(t, info.IsCoordinator)
	assert.Equal(t, []string{"Kitchen"}, info.GroupMembers)
}

func TestLookupBeforeDiscovery(t *testing.T) {
	env := newTestEnv(speakerSet("Kitchen")...)

	_, ok := env.registry.Lookup("Kitchen")
	assert.False(t, ok)
}
