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
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeZonePlayer answers SOAP actions from canned responses and records
// the request bodies it saw, keyed by action name.
type fakeZonePlayer struct {
	responses map[string]string
	requests  map[string]string
}

func (f *fakeZonePlayer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := r.Header.Get("SOAPACTION")
	name := strings.Trim(action[strings.LastIndex(action, "#")+1:], `"`)

	body, _ := io.ReadAll(r.Body)
	f.requests[name] = string(body)

	resp, ok := f.responses[name]
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, soapFault(401))

		return
	}

	fmt.Fprint(w, resp)
}

// soapResponse wraps out-arguments in a minimal response envelope.
func soapResponse(action string, args map[string]string) string {
	var buf bytes.Buffer

	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>`)
	fmt.Fprintf(&buf, `<u:%sResponse xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">`, action)

	for name, value := range args {
		buf.WriteString("<" + name + ">")
		_ = xml.EscapeText(&buf, []byte(value))
		buf.WriteString("</" + name + ">")
	}

	fmt.Fprintf(&buf, `</u:%sResponse></s:Body></s:Envelope>`, action)

	return buf.String()
}

func soapFault(code int) string {
	return fmt.Sprintf(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>`+
		`<s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring>`+
		`<detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>%d</errorCode></UPnPError></detail>`+
		`</s:Fault></s:Body></s:Envelope>`, code)
}

func testDevice(t *testing.T, responses map[string]string) (*Device, *fakeZonePlayer) {
	t.Helper()

	player := &fakeZonePlayer{
		responses: responses,
		requests:  make(map[string]string),
	}

	srv := httptest.NewServer(player)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	d := NewDevice(u.Hostname(), srv.Client(), nil)
	d.port = port

	return d, player
}

func TestBuildEnvelope(t *testing.T) {
	envelope := string(buildEnvelope("urn:schemas-upnp-org:service:AVTransport:1", "Seek",
		[]soapArg{{"Unit", "REL_TIME"}, {"Target", "0:01:30"}}))

	assert.Contains(t, envelope, `<u:Seek xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">`)
	assert.Contains(t, envelope, "<Unit>REL_TIME</Unit>")
	assert.Contains(t, envelope, "<Target>0:01:30</Target>")
	assert.Contains(t, envelope, "</u:Seek>")
}

func TestBuildEnvelopeEscapesArgumentValues(t *testing.T) {
	envelope := string(buildEnvelope("urn:x", "Browse", []soapArg{{"ObjectID", "A&B <C>"}}))

	assert.Contains(t, envelope, "A&amp;B &lt;C&gt;")
	assert.NotContains(t, envelope, "A&B <C>")
}

func TestParseSOAPBody(t *testing.T) {
	body := soapResponse("GetVolume", map[string]string{"CurrentVolume": "30"})

	values, err := parseSOAPBody(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, "30", values["CurrentVolume"])
}

func TestParseSOAPBodyMalformed(t *testing.T) {
	_, err := parseSOAPBody(strings.NewReader("<unclosed"))
	assert.Error(t, err)
}

func TestDeviceVolume(t *testing.T) {
	d, player := testDevice(t, map[string]string{
		"GetVolume": soapResponse("GetVolume", map[string]string{"CurrentVolume": "42"}),
	})

	volume, err := d.Volume(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 42, volume)
	assert.Contains(t, player.requests["GetVolume"], "<Channel>Master</Channel>")
}

func TestDeviceSetVolumeClampsRange(t *testing.T) {
	d, player := testDevice(t, map[string]string{
		"SetVolume": soapResponse("SetVolume", nil),
	})

	require.NoError(t, d.SetVolume(context.Background(), 150))
	assert.Contains(t, player.requests["SetVolume"], "<DesiredVolume>100</DesiredVolume>")

	require.NoError(t, d.SetVolume(context.Background(), -5))
	assert.Contains(t, player.requests["SetVolume"], "<DesiredVolume>0</DesiredVolume>")
}

func TestDevicePlayerName(t *testing.T) {
	d, _ := testDevice(t, map[string]string{
		"GetZoneAttributes": soapResponse("GetZoneAttributes", map[string]string{"CurrentZoneName": "Kitchen"}),
	})

	name, err := d.PlayerName(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Kitchen", name)
}

func TestDeviceTransportState(t *testing.T) {
	d, _ := testDevice(t, map[string]string{
		"GetTransportInfo": soapResponse("GetTransportInfo", map[string]string{
			"CurrentTransportState": "PLAYING",
			"CurrentTransportStatus": "OK",
		}),
	})

	state, err := d.TransportState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatePlaying, state)
}

func TestDeviceMuteToggle(t *testing.T) {
	d, player := testDevice(t, map[string]string{
		"GetMute": soapResponse("GetMute", map[string]string{"CurrentMute": "1"}),
		"SetMute": soapResponse("SetMute", nil),
	})

	muted, err := d.Mute(context.Background())
	require.NoError(t, err)
	assert.True(t, muted)

	require.NoError(t, d.SetMute(context.Background(), false))
	assert.Contains(t, player.requests["SetMute"], "<DesiredMute>0</DesiredMute>")
}

func TestDeviceCurrentTrack(t *testing.T) {
	metadata := `<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/"` +
		` xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/"` +
		` xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">` +
		`<item id="-1" parentID="-1" restricted="true">` +
		`<dc:title>So What</dc:title>` +
		`<dc:creator>Miles Davis</dc:creator>` +
		`<upnp:album>Kind of Blue</upnp:album>` +
		`</item></DIDL-Lite>`

	d, _ := testDevice(t, map[string]string{
		"GetPositionInfo": soapResponse("GetPositionInfo", map[string]string{
			"Track":         "3",
			"TrackDuration": "0:09:22",
			"RelTime":       "0:01:05",
			"TrackMetaData": metadata,
		}),
	})

	track, err := d.CurrentTrack(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "So What", track.Title)
	assert.Equal(t, "Miles Davis", track.Artist)
	assert.Equal(t, "Kind of Blue", track.Album)
	assert.Equal(t, "0:09:22", track.Duration)
	assert.Equal(t, "0:01:05", track.Position)
	assert.Equal(t, 3, track.QueuePos)
}

func TestDeviceCurrentTrackToleratesBrokenMetadata(t *testing.T) {
	d, _ := testDevice(t, map[string]string{
		"GetPositionInfo": soapResponse("GetPositionInfo", map[string]string{
			"Track":         "1",
			"RelTime":       "0:00:10",
			"TrackMetaData": "<DIDL-Lite><item><broken",
		}),
	})

	track, err := d.CurrentTrack(context.Background())
	require.NoError(t, err)

	assert.Empty(t, track.Title)
	assert.Equal(t, "0:00:10", track.Position)
}

func TestDeviceSOAPFault(t *testing.T) {
	d, _ := testDevice(t, map[string]string{})

	err := d.Play(context.Background())
	require.Error(t, err)

	var soapErr *SOAPError
	require.ErrorAs(t, err, &soapErr)

	assert.Equal(t, 401, soapErr.Code)
	assert.Equal(t, "Play", soapErr.Action)
}

func TestDeviceUIDResolvedFromTopology(t *testing.T) {
	d, player := testDevice(t, map[string]string{})

	topology := fmt.Sprintf(`<ZoneGroupState><ZoneGroups>`+
		`<ZoneGroup Coordinator="RINCON_KITCHEN" ID="RINCON_KITCHEN:1">`+
		`<ZoneGroupMember UUID="RINCON_KITCHEN" ZoneName="Kitchen" Location="http://%s:1400/xml/device_description.xml"/>`+
		`</ZoneGroup></ZoneGroups></ZoneGroupState>`, d.addr)

	player.responses["GetZoneGroupState"] = soapResponse("GetZoneGroupState", map[string]string{
		"ZoneGroupState": topology,
	})

	uid, err := d.UID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RINCON_KITCHEN", uid)

	// Second call is served from the cache even if the device goes away.
	player.responses = map[string]string{}

	uid, err = d.UID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RINCON_KITCHEN", uid)
}
