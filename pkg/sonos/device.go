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

// Package sonos is a thin UPnP control client for Sonos zone players. It
// speaks SOAP to the well-known service endpoints on port 1400 and parses
// the handful of XML documents the devices expose. It carries no state
// beyond a cached zone UID; all speaker state lives on the devices.
package sonos

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sndctl/sndctl/pkg/logger"
)

var (
	// ErrItemNotFound is returned when a named favorite, playlist or radio
	// station does not exist on the household.
	ErrItemNotFound = errors.New("item not found")

	errNotInTopology = errors.New("device not present in zone group state")
)

const defaultRequestTimeout = 5 * time.Second

// Device is a control handle for a single zone player, addressed by IP.
// Handles are cheap to create and hold no connection; every method issues
// its own HTTP request and honors the caller's context.
type Device struct {
	addr   string
	port   int
	client *http.Client
	log    logger.Logger

	mu  sync.Mutex
	uid string
}

// NewDevice creates a handle for the zone player at addr. A nil client
// gets a default with a conservative timeout; a nil log disables logging.
func NewDevice(addr string, client *http.Client, log logger.Logger) *Device {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Device{addr: addr, port: ControlPort, client: client, log: log}
}

// Address returns the device IP this handle controls.
func (d *Device) Address() string {
	return d.addr
}

// PlayerName returns the zone name as reported by the device itself. This
// is the authoritative name; the one scraped from /status/zp during
// scanning is only a hint.
func (d *Device) PlayerName(ctx context.Context) (string, error) {
	values, err := d.invoke(ctx, svcDeviceProperties, "GetZoneAttributes")
	if err != nil {
		return "", err
	}

	return values["CurrentZoneName"], nil
}

// ZoneGroupState fetches the household topology from this device. Any
// reachable zone player reports the full household.
func (d *Device) ZoneGroupState(ctx context.Context) (*ZoneGroupState, error) {
	values, err := d.invoke(ctx, svcZoneGroupTopology, "GetZoneGroupState")
	if err != nil {
		return nil, err
	}

	return ParseZoneGroupState(values["ZoneGroupState"])
}

// UID returns the zone UID (RINCON_...) of this device, resolved from the
// topology on first use and cached for the life of the handle.
func (d *Device) UID(ctx context.Context) (string, error) {
	d.mu.Lock()
	cached := d.uid
	d.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	state, err := d.ZoneGroupState(ctx)
	if err != nil {
		return "", err
	}

	member, _ := state.MemberByAddress(d.addr)
	if member == nil {
		return "", errNotInTopology
	}

	d.mu.Lock()
	d.uid = member.UID
	d.mu.Unlock()

	return member.UID, nil
}

func (d *Device) topologyEntry(ctx context.Context) (*ZoneMember, *ZoneGroup, error) {
	state, err := d.ZoneGroupState(ctx)
	if err != nil {
		return nil, nil, err
	}

	member, group := state.MemberByAddress(d.addr)
	if member == nil {
		return nil, nil, errNotInTopology
	}

	return member, group, nil
}

// IsVisible reports whether this device is independently addressable.
// Bonded subs and surrounds report false.
func (d *Device) IsVisible(ctx context.Context) (bool, error) {
	member, _, err := d.topologyEntry(ctx)
	if err != nil {
		return false, err
	}

	return !member.Invisible, nil
}

// IsCoordinator reports whether this device owns the transport for its
// current group.
func (d *Device) IsCoordinator(ctx context.Context) (bool, error) {
	member, group, err := d.topologyEntry(ctx)
	if err != nil {
		return false, err
	}

	return group.Coordinator == member.UID, nil
}

// GroupMembers returns the zone names of the other visible members of this
// device's group.
func (d *Device) GroupMembers(ctx context.Context) ([]string, error) {
	member, group, err := d.topologyEntry(ctx)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, m := range group.VisibleMembers() {
		if m.UID != member.UID {
			names = append(names, m.ZoneName)
		}
	}

	return names, nil
}

// deviceDescription is the subset of /xml/device_description.xml we read.
type deviceDescription struct {
	XMLName xml.Name `xml:"root"`
	Device  struct {
		FriendlyName string `xml:"friendlyName"`
		ModelName    string `xml:"modelName"`
		UDN          string `xml:"UDN"`
	} `xml:"device"`
}

// Model returns the hardware model name from the device description.
func (d *Device) Model(ctx context.Context) (string, error) {
	endpoint := fmt.Sprintf("http://%s:%d/xml/device_description.xml", d.addr, d.port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}

	defer func() { _ = resp.Body.Close() }()

	var desc deviceDescription
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxSOAPResponse)).Decode(&desc); err != nil {
		return "", fmt.Errorf("malformed device description: %w", err)
	}

	return desc.Device.ModelName, nil
}

// batteryStatus is the /status/batterystatus document on portable
// speakers. Non-portable models serve an empty report.
type batteryStatus struct {
	XMLName xml.Name `xml:"ZPSupportInfo"`
	Data    []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"LocalBatteryStatus>Data"`
}

// BatteryLevel returns the battery percentage for portable speakers. The
// second return is false when the device has no battery to report.
func (d *Device) BatteryLevel(ctx context.Context) (int, bool, error) {
	endpoint := fmt.Sprintf("http://%s:%d/status/batterystatus", d.addr, d.port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return 0, false, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, false, err
	}

	defer func() { _ = resp.Body.Close() }()

	var status batteryStatus
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxSOAPResponse)).Decode(&status); err != nil {
		// Not an error: mains-powered models serve documents without the
		// battery section.
		return 0, false, nil //nolint:nilerr // absence of a battery is not a failure
	}

	for _, entry := range status.Data {
		if entry.Name == "Level" {
			level, convErr := strconv.Atoi(entry.Value)
			if convErr != nil {
				return 0, false, nil
			}

			return level, true, nil
		}
	}

	return 0, false, nil
}
