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
	"encoding/xml"
	"fmt"
	"net/url"
)

// ZoneGroupState is the household topology reported by any zone player.
// Every group has exactly one coordinator; bonded satellites and invisible
// pairs appear as members with Invisible set or nested under Satellite.
type ZoneGroupState struct {
	XMLName xml.Name    `xml:"ZoneGroupState"`
	Groups  []ZoneGroup `xml:"ZoneGroups>ZoneGroup"`
}

type ZoneGroup struct {
	Coordinator string       `xml:"Coordinator,attr"`
	ID          string       `xml:"ID,attr"`
	Members     []ZoneMember `xml:"ZoneGroupMember"`
}

type ZoneMember struct {
	UID        string       `xml:"UUID,attr"`
	ZoneName   string       `xml:"ZoneName,attr"`
	Location   string       `xml:"Location,attr"`
	Invisible  bool         `xml:"Invisible,attr"`
	Satellites []ZoneMember `xml:"Satellite"`
}

// Address extracts the member's IP from its Location URL.
func (m *ZoneMember) Address() string {
	u, err := url.Parse(m.Location)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

// ParseZoneGroupState parses the XML document returned by
// GetZoneGroupState. Older firmware omits the ZoneGroupState wrapper
// element, so both shapes are accepted.
func ParseZoneGroupState(doc string) (*ZoneGroupState, error) {
	var state ZoneGroupState
	if err := xml.Unmarshal([]byte(doc), &state); err == nil && len(state.Groups) > 0 {
		return &state, nil
	}

	var legacy struct {
		XMLName xml.Name    `xml:"ZoneGroups"`
		Groups  []ZoneGroup `xml:"ZoneGroup"`
	}

	if err := xml.Unmarshal([]byte(doc), &legacy); err != nil {
		return nil, fmt.Errorf("malformed zone group state: %w", err)
	}

	return &ZoneGroupState{Groups: legacy.Groups}, nil
}

// MemberByUID returns the member and its group for the given zone UID.
func (s *ZoneGroupState) MemberByUID(uid string) (*ZoneMember, *ZoneGroup) {
	for gi := range s.Groups {
		g := &s.Groups[gi]

		for mi := range g.Members {
			if g.Members[mi].UID == uid {
				return &g.Members[mi], g
			}
		}
	}

	return nil, nil
}

// MemberByAddress returns the member and its group for the given IP.
// Satellites are searched too so a probe that landed on a bonded unit can
// still be identified.
func (s *ZoneGroupState) MemberByAddress(addr string) (*ZoneMember, *ZoneGroup) {
	for gi := range s.Groups {
		g := &s.Groups[gi]

		for mi := range g.Members {
			m := &g.Members[mi]
			if m.Address() == addr {
				return m, g
			}

			for si := range m.Satellites {
				if m.Satellites[si].Address() == addr {
					return &m.Satellites[si], g
				}
			}
		}
	}

	return nil, nil
}

// VisibleMembers returns the group's members excluding invisible bonded
// units.
func (g *ZoneGroup) VisibleMembers() []ZoneMember {
	visible := make([]ZoneMember, 0, len(g.Members))

	for _, m := range g.Members {
		if !m.Invisible {
			visible = append(visible, m)
		}
	}

	return visible
}
