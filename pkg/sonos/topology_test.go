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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleZoneGroupState = `<ZoneGroupState>
  <ZoneGroups>
    <ZoneGroup Coordinator="RINCON_KITCHEN" ID="RINCON_KITCHEN:42">
      <ZoneGroupMember UUID="RINCON_KITCHEN" ZoneName="Kitchen" Location="http://192.168.1.20:1400/xml/device_description.xml"/>
      <ZoneGroupMember UUID="RINCON_BEDROOM" ZoneName="Bedroom" Location="http://192.168.1.30:1400/xml/device_description.xml"/>
    </ZoneGroup>
    <ZoneGroup Coordinator="RINCON_TV" ID="RINCON_TV:7">
      <ZoneGroupMember UUID="RINCON_TV" ZoneName="Living Room" Location="http://192.168.1.40:1400/xml/device_description.xml">
        <Satellite UUID="RINCON_SUB" ZoneName="Living Room" Location="http://192.168.1.41:1400/xml/device_description.xml" Invisible="1"/>
      </ZoneGroupMember>
      <ZoneGroupMember UUID="RINCON_PAIR" ZoneName="Living Room" Location="http://192.168.1.42:1400/xml/device_description.xml" Invisible="1"/>
    </ZoneGroup>
  </ZoneGroups>
</ZoneGroupState>`

func TestParseZoneGroupState(t *testing.T) {
	state, err := ParseZoneGroupState(sampleZoneGroupState)
	require.NoError(t, err)

	require.Len(t, state.Groups, 2)

	group := state.Groups[0]
	assert.Equal(t, "RINCON_KITCHEN", group.Coordinator)
	require.Len(t, group.Members, 2)
	assert.Equal(t, "Kitchen", group.Members[0].ZoneName)
	assert.Equal(t, "Bedroom", group.Members[1].ZoneName)
}

func TestParseZoneGroupStateLegacyRoot(t *testing.T) {
	legacy := `<ZoneGroups>
  <ZoneGroup Coordinator="RINCON_KITCHEN" ID="RINCON_KITCHEN:1">
    <ZoneGroupMember UUID="RINCON_KITCHEN" ZoneName="Kitchen" Location="http://192.168.1.20:1400/xml/device_description.xml"/>
  </ZoneGroup>
</ZoneGroups>`

	state, err := ParseZoneGroupState(legacy)
	require.NoError(t, err)

	require.Len(t, state.Groups, 1)
	assert.Equal(t, "Kitchen", state.Groups[0].Members[0].ZoneName)
}

func TestParseZoneGroupStateMalformed(t *testing.T) {
	_, err := ParseZoneGroupState("<ZoneGroupState><unclosed")
	assert.Error(t, err)
}

func TestVisibleMembersExcludesBondedUnits(t *testing.T) {
	state, err := ParseZoneGroupState(sampleZoneGroupState)
	require.NoError(t, err)

	visible := state.Groups[1].VisibleMembers()

	require.Len(t, visible, 1)
	assert.Equal(t, "RINCON_TV", visible[0].UID)
}

func TestMemberAddressFromLocation(t *testing.T) {
	state, err := ParseZoneGroupState(sampleZoneGroupState)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.20", state.Groups[0].Members[0].Address())
}

func TestMemberByUID(t *testing.T) {
	state, err := ParseZoneGroupState(sampleZoneGroupState)
	require.NoError(t, err)

	member, group := state.MemberByUID("RINCON_BEDROOM")
	require.NotNil(t, member)
	assert.Equal(t, "Bedroom", member.ZoneName)
	assert.Equal(t, "RINCON_KITCHEN", group.Coordinator)

	member, group = state.MemberByUID("RINCON_NOPE")
	assert.Nil(t, member)
	assert.Nil(t, group)
}

func TestMemberByAddressFindsSatellites(t *testing.T) {
	state, err := ParseZoneGroupState(sampleZoneGroupState)
	require.NoError(t, err)

	member, group := state.MemberByAddress("192.168.1.41")
	require.NotNil(t, member)
	assert.Equal(t, "RINCON_SUB", member.UID)
	assert.Equal(t, "RINCON_TV", group.Coordinator)
}
