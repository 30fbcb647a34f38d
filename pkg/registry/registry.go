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

// Package registry maintains the time-bounded view of reachable speakers
// and answers which device a command must be sent to. Transport operations
// on a grouped speaker are redirected to the group's coordinator; member
// devices silently fail or report stale state for those calls.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sndctl/sndctl/pkg/logger"
	"github.com/sndctl/sndctl/pkg/models"
)

// ErrSpeakerNotFound is the one hard failure this package produces:
// resolving an unknown name must fail rather than control the wrong
// speaker.
var ErrSpeakerNotFound = errors.New("speaker not found")

const (
	defaultCacheTTL = 5 * time.Minute
)

// record is a speaker entry in a snapshot. Records are rebuilt wholesale
// on every discovery cycle and never mutated by control operations, so
// they can go stale between cycles; that is a documented property of the
// cache, not a defect.
type record struct {
	name            string
	addr            string
	coordinator     bool
	coordinatorName string
	members         []string
	device          Device
}

// snapshot is an immutable discovery result. Replacing the registry's
// snapshot pointer is the only write; readers always see either the old
// or the new snapshot, never a half-built one.
type snapshot struct {
	entries    map[string]*record
	capturedAt time.Time
}

func (s *snapshot) names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Info is the registry's view of one speaker, as captured by the last
// discovery cycle.
type Info struct {
	Name          string
	Address       string
	IsCoordinator bool
	GroupMembers  []string
}

// Config holds the registry's tunables.
type Config struct {
	// Subnet is the /24 prefix scanned when multicast finds nothing.
	Subnet string
	// CacheTTL is the snapshot freshness window.
	CacheTTL time.Duration
}

// Registry is constructed once per process and shared by all request
// handlers.
type Registry struct {
	discoverer Discoverer
	scanner    Scanner
	connect    Connector
	subnet     string
	ttl        time.Duration
	log        logger.Logger

	// discoverMu serializes discovery cycles: overlapping multicast scans
	// corrupt each other's in-flight results.
	discoverMu sync.Mutex

	mu   sync.RWMutex
	snap *snapshot

	now func() time.Time
}

func New(discoverer Discoverer, scanner Scanner, connect Connector, cfg Config, log logger.Logger) *Registry {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Registry{
		discoverer: discoverer,
		scanner:    scanner,
		connect:    connect,
		subnet:     cfg.Subnet,
		ttl:        cfg.CacheTTL,
		log:        log,
		now:        time.Now,
	}
}

func (r *Registry) snapshot() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.snap
}

type confirmed struct {
	name   string
	device Device
}

// Discover returns the sorted names of all visible speakers. A fresh
// snapshot is served from cache; otherwise multicast discovery runs, with
// an IP scan of the configured subnet as fallback. When both paths find
// nothing the previous snapshot survives untouched: total failure is "no
// new information", not "empty world".
func (r *Registry) Discover(ctx context.Context, force bool) ([]string, error) {
	r.discoverMu.Lock()
	defer r.discoverMu.Unlock()

	if snap := r.snapshot(); snap != nil && !force && r.now().Sub(snap.capturedAt) < r.ttl {
		return snap.names(), nil
	}

	devices := r.discoverPrimary(ctx)

	if len(devices) == 0 {
		r.log.Warn().Str("subnet", r.subnet).Msg("multicast discovery found no speakers, falling back to IP scan")

		devices = r.discoverByScan(ctx)
	}

	if len(devices) == 0 {
		if snap := r.snapshot(); snap != nil {
			r.log.Warn().Msg("discovery found no speakers, keeping previous snapshot")
			return snap.names(), nil
		}

		return []string{}, nil
	}

	snap := r.buildSnapshot(ctx, devices)

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	r.log.Info().Int("speakers", len(snap.entries)).Msg("discovery complete")

	return snap.names(), nil
}

func (r *Registry) discoverPrimary(ctx context.Context) []confirmed {
	addrs, err := r.discoverer.Discover(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("multicast discovery failed")
		return nil
	}

	return r.confirm(ctx, addrs)
}

func (r *Registry) discoverByScan(ctx context.Context) []confirmed {
	candidates, err := r.scanner.ScanSubnet(ctx, r.subnet)
	if err != nil {
		r.log.Warn().Err(err).Str("subnet", r.subnet).Msg("IP scan failed")
		return nil
	}

	addrs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		// The scraped zone name is only a hint; the canonical name comes
		// from the control surface during confirmation.
		addrs = append(addrs, c.Addr)
	}

	return r.confirm(ctx, addrs)
}

// confirm opens a control connection to each candidate, drops invisible
// devices (bonded subs, surrounds) and anything that does not answer.
// One misbehaving device never aborts confirmation of the others.
func (r *Registry) confirm(ctx context.Context, addrs []string) []confirmed {
	var result []confirmed

	for _, addr := range addrs {
		device := r.connect(addr)

		visible, err := device.IsVisible(ctx)
		if err != nil {
			r.log.Debug().Err(err).Str("addr", addr).Msg("could not confirm candidate")
			continue
		}

		if !visible {
			r.log.Debug().Str("addr", addr).Msg("skipping non-visible speaker")
			continue
		}

		name, err := device.PlayerName(ctx)
		if err != nil || name == "" {
			r.log.Debug().Err(err).Str("addr", addr).Msg("could not read speaker name")
			continue
		}

		result = append(result, confirmed{name: name, device: device})
	}

	return result
}

// buildSnapshot assembles records for the confirmed devices and enriches
// them with group topology fetched from one of them. Topology failure
// leaves the records without group info, which resolution treats as
// "device is its own handle".
func (r *Registry) buildSnapshot(ctx context.Context, devices []confirmed) *snapshot {
	entries := make(map[string]*record, len(devices))

	for _, c := range devices {
		entries[c.name] = &record{
			name:   c.name,
			addr:   c.device.Address(),
			device: c.device,
		}
	}

	state, err := devices[0].device.ZoneGroupState(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("could not read zone group topology")

		return &snapshot{entries: entries, capturedAt: r.now()}
	}

	for gi := range state.Groups {
		group := &state.Groups[gi]

		visible := group.VisibleMembers()

		var coordinatorName string

		for _, m := range visible {
			if m.UID == group.Coordinator {
				coordinatorName = m.ZoneName
				break
			}
		}

		for _, m := range visible {
			rec, ok := entries[m.ZoneName]
			if !ok {
				continue
			}

			rec.coordinator = m.UID == group.Coordinator
			rec.coordinatorName = coordinatorName

			for _, other := range visible {
				if other.UID != m.UID {
					rec.members = append(rec.members, other.ZoneName)
				}
			}
		}
	}

	return &snapshot{entries: entries, capturedAt: r.now()}
}

// Lookup returns the device handle for a named speaker.
func (r *Registry) Lookup(name string) (Device, bool) {
	snap := r.snapshot()
	if snap == nil {
		return nil, false
	}

	rec, ok := snap.entries[name]
	if !ok {
		return nil, false
	}

	return rec.device, true
}

// ResolveCoordinator returns the handle transport operations must target
// for the named speaker: the group coordinator when the speaker is a
// member, the speaker itself when it coordinates or its group state is
// unknown. Unknown names fail hard; controlling the wrong speaker is
// worse than failing the request.
func (r *Registry) ResolveCoordinator(name string) (Device, error) {
	snap := r.snapshot()
	if snap == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrSpeakerNotFound)
	}

	rec, ok := snap.entries[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrSpeakerNotFound)
	}

	if rec.coordinator || rec.coordinatorName == "" || rec.coordinatorName == rec.name {
		return rec.device, nil
	}

	coord, ok := snap.entries[rec.coordinatorName]
	if !ok {
		// Coordinator known by name but never confirmed on the network;
		// the member handle is the best we have.
		return rec.device, nil
	}

	return coord.device, nil
}

// Info returns the snapshot's view of a speaker.
func (r *Registry) Info(name string) (Info, bool) {
	snap := r.snapshot()
	if snap == nil {
		return Info{}, false
	}

	rec, ok := snap.entries[name]
	if !ok {
		return Info{}, false
	}

	members := make([]string, len(rec.members))
	copy(members, rec.members)

	return Info{
		Name:          rec.name,
		Address:       rec.addr,
		IsCoordinator: rec.coordinator,
		GroupMembers:  members,
	}, true
}

// Groups lists the current zone groups, one entry per coordinator.
func (r *Registry) Groups() []models.Group {
	snap := r.snapshot()
	if snap == nil {
		return nil
	}

	var groups []models.Group

	for _, rec := range snap.entries {
		if !rec.coordinator {
			continue
		}

		members := make([]string, len(rec.members))
		copy(members, rec.members)
		sort.Strings(members)

		groups = append(groups, models.Group{
			Coordinator: rec.name,
			Members:     members,
		})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Coordinator < groups[j].Coordinator })

	return groups
}

// CapturedAt returns the timestamp of the current snapshot, zero when no
// discovery has succeeded yet.
func (r *Registry) CapturedAt() time.Time {
	snap := r.snapshot()
	if snap == nil {
		return time.Time{}
	}

	return snap.capturedAt
}
