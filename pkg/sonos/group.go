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
	"strconv"
)

// Join bonds this device into the group whose coordinator has the given
// zone UID. The device keeps its own rendering settings.
func (d *Device) Join(ctx context.Context, coordinatorUID string) error {
	_, err := d.invoke(ctx, svcAVTransport, "SetAVTransportURI",
		instanceArg(),
		soapArg{"CurrentURI", "x-rincon:" + coordinatorUID},
		soapArg{"CurrentURIMetaData", ""},
	)

	return err
}

// Unjoin removes this device from its group, making it a standalone
// coordinator again. A no-op on devices that are already standalone.
func (d *Device) Unjoin(ctx context.Context) error {
	_, err := d.invoke(ctx, svcAVTransport, "BecomeCoordinatorOfStandaloneGroup", instanceArg())
	return err
}

// GroupVolume returns the group-wide volume. Only meaningful on a
// coordinator.
func (d *Device) GroupVolume(ctx context.Context) (int, error) {
	values, err := d.invoke(ctx, svcGroupRenderingControl, "GetGroupVolume", instanceArg())
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(values["CurrentVolume"])
}

// SetGroupVolume sets the volume of every member of this device's group,
// preserving their relative levels.
func (d *Device) SetGroupVolume(ctx context.Context, volume int) error {
	if volume < 0 {
		volume = 0
	} else if volume > 100 {
		volume = 100
	}

	// SnapshotGroupVolume fixes the member ratios the SetGroupVolume call
	// scales against.
	if _, err := d.invoke(ctx, svcGroupRenderingControl, "SnapshotGroupVolume", instanceArg()); err != nil {
		return err
	}

	_, err := d.invoke(ctx, svcGroupRenderingControl, "SetGroupVolume",
		instanceArg(), soapArg{"DesiredVolume", strconv.Itoa(volume)})

	return err
}
