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
)

// didlLite models the DIDL-Lite documents ContentDirectory returns from
// Browse and embeds in track metadata. Element matching is by local name,
// which covers the dc:/upnp:/r: namespaces without declaring them.
type didlLite struct {
	XMLName    xml.Name     `xml:"DIDL-Lite"`
	Items      []didlObject `xml:"item"`
	Containers []didlObject `xml:"container"`
}

type didlObject struct {
	ID          string    `xml:"id,attr"`
	Title       string    `xml:"title"`
	Creator     string    `xml:"creator"`
	Album       string    `xml:"album"`
	AlbumArtURI string    `xml:"albumArtURI"`
	ResMD       string    `xml:"resMD"`
	Res         []didlRes `xml:"res"`
}

type didlRes struct {
	ProtocolInfo string `xml:"protocolInfo,attr"`
	URI          string `xml:",chardata"`
}

func (o *didlObject) uri() string {
	if len(o.Res) == 0 {
		return ""
	}

	return o.Res[0].URI
}

func parseDIDL(doc string) (*didlLite, error) {
	if doc == "" || doc == "NOT_IMPLEMENTED" {
		return &didlLite{}, nil
	}

	var d didlLite
	if err := xml.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("malformed didl document: %w", err)
	}

	return &d, nil
}
