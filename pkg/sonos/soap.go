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
	"strconv"
	"strings"
)

// ControlPort is the well-known HTTP port of every zone player.
const ControlPort = 1400

// maxSOAPResponse bounds response reads; zone group state on large
// households runs to a few hundred KB.
const maxSOAPResponse = 4 << 20

type soapService struct {
	path string
	urn  string
}

var (
	svcAVTransport           = soapService{"/MediaRenderer/AVTransport/Control", "urn:schemas-upnp-org:service:AVTransport:1"}
	svcRenderingControl      = soapService{"/MediaRenderer/RenderingControl/Control", "urn:schemas-upnp-org:service:RenderingControl:1"}
	svcGroupRenderingControl = soapService{"/MediaRenderer/GroupRenderingControl/Control", "urn:schemas-upnp-org:service:GroupRenderingControl:1"}
	svcContentDirectory      = soapService{"/MediaServer/ContentDirectory/Control", "urn:schemas-upnp-org:service:ContentDirectory:1"}
	svcZoneGroupTopology     = soapService{"/ZoneGroupTopology/Control", "urn:schemas-upnp-org:service:ZoneGroupTopology:1"}
	svcDeviceProperties      = soapService{"/DeviceProperties/Control", "urn:schemas-upnp-org:service:DeviceProperties:1"}
)

type soapArg struct {
	name  string
	value string
}

// SOAPError is a UPnP-level fault returned by a device that accepted the
// HTTP request but rejected the action.
type SOAPError struct {
	Action string
	Code   int
}

func (e *SOAPError) Error() string {
	return fmt.Sprintf("upnp error %d from %s", e.Code, e.Action)
}

func buildEnvelope(urn, action string, args []soapArg) []byte {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"` +
		` s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`)
	fmt.Fprintf(&buf, `<u:%s xmlns:u="%s">`, action, urn)

	for _, a := range args {
		buf.WriteString("<" + a.name + ">")
		_ = xml.EscapeText(&buf, []byte(a.value))
		buf.WriteString("</" + a.name + ">")
	}

	fmt.Fprintf(&buf, `</u:%s></s:Body></s:Envelope>`, action)

	return buf.Bytes()
}

// parseSOAPBody flattens the response into leaf-element name -> character
// data. Sonos action responses are a single level of scalar out-arguments,
// so a flat map is sufficient.
func parseSOAPBody(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	values := make(map[string]string)

	var current string

	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("malformed soap response: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if t.Name.Local == current && current != "" {
				values[current] = text.String()
			}

			current = ""
		}
	}

	return values, nil
}

func (d *Device) invoke(ctx context.Context, svc soapService, action string, args ...soapArg) (map[string]string, error) {
	endpoint := fmt.Sprintf("http://%s:%d%s", d.addr, d.port, svc.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buildEnvelope(svc.urn, action, args)))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, svc.urn, action))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", d.addr, action, err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.log.Debug().Err(cerr).Str("device", d.addr).Msg("failed to close response body")
		}
	}()

	values, err := parseSOAPBody(io.LimitReader(resp.Body, maxSOAPResponse))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		code := 0
		if raw, ok := values["errorCode"]; ok {
			code, _ = strconv.Atoi(raw)
		}

		return nil, &SOAPError{Action: action, Code: code}
	}

	return values, nil
}
