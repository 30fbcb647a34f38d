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

// Package scan probes IP ranges for Sonos zone players. It is the fallback
// discovery path for networks where multicast is filtered (containers,
// guest VLANs).
package scan

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sndctl/sndctl/pkg/logger"
)

const (
	// zonePlayerMarker appears in the /status/zp body of every Sonos
	// device and nothing else on port 1400.
	zonePlayerMarker = "ZPSupportInfo"

	statusPort = 1400

	defaultProbeTimeout = 3 * time.Second
	defaultConcurrency  = 50

	maxProbeBody = 64 << 10
)

var zoneNameRe = regexp.MustCompile(`<ZoneName>([^<]+)</ZoneName>`)

// Candidate is a probe hit: an address that served the zone player marker,
// with the zone name scraped from the same response. The name is a hint;
// the control surface remains the authority.
type Candidate struct {
	Addr     string
	ZoneName string
}

// Sweeper probes hosts with a bounded worker pool. Probe failures are
// independent: an unreachable host is simply not a candidate.
type Sweeper struct {
	timeout     time.Duration
	concurrency int
	port        int
	client      *http.Client
	log         logger.Logger
}

func NewSweeper(timeout time.Duration, concurrency int, log logger.Logger) *Sweeper {
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	if concurrency == 0 {
		concurrency = defaultConcurrency
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Sweeper{
		timeout:     timeout,
		concurrency: concurrency,
		port:        statusPort,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: time.Second,
				}).DialContext,
				DisableKeepAlives: true,
			},
		},
		log: log,
	}
}

// Scan probes every host and streams candidates as they confirm. The
// channel closes when all probes finish or ctx is canceled.
func (s *Sweeper) Scan(ctx context.Context, hosts []string) <-chan Candidate {
	resultCh := make(chan Candidate, len(hosts))
	workCh := make(chan string, s.concurrency)

	var wg sync.WaitGroup

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			s.worker(ctx, workCh, resultCh)
		}()
	}

	go func() {
		defer close(workCh)

		for _, h := range hosts {
			select {
			case <-ctx.Done():
				return
			case workCh <- h:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// ScanSubnet probes all 254 host addresses of a /24 prefix and collects
// the candidates.
func (s *Sweeper) ScanSubnet(ctx context.Context, subnet string) ([]Candidate, error) {
	hosts, err := ExpandSubnet(subnet)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate

	for c := range s.Scan(ctx, hosts) {
		candidates = append(candidates, c)
	}

	return candidates, ctx.Err()
}

func (s *Sweeper) worker(ctx context.Context, workCh <-chan string, resultCh chan<- Candidate) {
	for host := range workCh {
		candidate, ok := s.probe(ctx, host)
		if !ok {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case resultCh <- candidate:
		}
	}
}

// probe checks a single address for the zone player status page. Every
// failure mode means "not a Sonos device" and is at most logged.
func (s *Sweeper) probe(ctx context.Context, host string) (Candidate, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d/status/zp", host, s.port)

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Candidate{}, false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Candidate{}, false
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil || !strings.Contains(string(body), zonePlayerMarker) {
		return Candidate{}, false
	}

	candidate := Candidate{Addr: host}

	if m := zoneNameRe.FindSubmatch(body); m != nil {
		candidate.ZoneName = string(m[1])
	}

	s.log.Debug().Str("host", host).Str("zone", candidate.ZoneName).Msg("probe hit")

	return candidate, true
}
