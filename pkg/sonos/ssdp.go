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
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sndctl/sndctl/pkg/logger"
)

const (
	ssdpMulticastAddr = "239.255.255.250:1900"
	ssdpSearchTarget  = "urn:schemas-upnp-org:device:ZonePlayer:1"

	// ssdpProbeCount M-SEARCH datagrams are sent because multicast over
	// wifi drops packets routinely.
	ssdpProbeCount = 3

	ssdpReadBuffer = 2048
)

// SSDPDiscoverer finds zone players via multicast M-SEARCH. This is the
// primary discovery path; it fails closed (empty result) on networks that
// filter multicast, which callers handle by falling back to an IP scan.
type SSDPDiscoverer struct {
	timeout time.Duration
	log     logger.Logger
}

func NewSSDPDiscoverer(timeout time.Duration, log logger.Logger) *SSDPDiscoverer {
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &SSDPDiscoverer{timeout: timeout, log: log}
}

// Discover returns the addresses of all zone players that answered within
// the listen window, deduplicated. An empty slice with a nil error means
// nothing answered.
func (s *SSDPDiscoverer) Discover(ctx context.Context) ([]string, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.log.Debug().Err(cerr).Msg("failed to close ssdp socket")
		}
	}()

	target, err := net.ResolveUDPAddr("udp4", ssdpMulticastAddr)
	if err != nil {
		return nil, err
	}

	request := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: " + ssdpMulticastAddr,
		`MAN: "ssdp:discover"`,
		"MX: 1",
		"ST: " + ssdpSearchTarget,
		"", "",
	}, "\r\n")

	for i := 0; i < ssdpProbeCount; i++ {
		if _, err := conn.WriteTo([]byte(request), target); err != nil {
			return nil, err
		}
	}

	deadline := time.Now().Add(s.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	var addrs []string

	buf := make([]byte, ssdpReadBuffer)

	for {
		if ctx.Err() != nil {
			break
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			// Deadline exhaustion ends the listen window; anything else is
			// logged and ends it too, returning what we collected.
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				s.log.Debug().Err(err).Msg("ssdp read failed")
			}

			break
		}

		if !strings.Contains(string(buf[:n]), ssdpSearchTarget) {
			continue
		}

		host, _, err := net.SplitHostPort(from.String())
		if err != nil {
			continue
		}

		if _, dup := seen[host]; dup {
			continue
		}

		seen[host] = struct{}{}
		addrs = append(addrs, host)
	}

	return addrs, nil
}
