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

package scan

import (
	"fmt"
	"net"
	"strings"
)

const subnetHosts = 254

// ExpandSubnet turns a /24 prefix ("192.168.1") into its 254 host
// addresses. A full CIDR ("192.168.1.0/24") is accepted too.
func ExpandSubnet(subnet string) ([]string, error) {
	prefix := strings.TrimSpace(subnet)

	if strings.Contains(prefix, "/") {
		ip, ipnet, err := net.ParseCIDR(prefix)
		if err != nil {
			return nil, fmt.Errorf("bad subnet %q: %w", subnet, err)
		}

		if ones, _ := ipnet.Mask.Size(); ones != 24 || ip.To4() == nil {
			return nil, fmt.Errorf("bad subnet %q: only IPv4 /24 ranges are scanned", subnet)
		}

		octets := strings.Split(ipnet.IP.String(), ".")
		prefix = strings.Join(octets[:3], ".")
	}

	if net.ParseIP(prefix+".1") == nil {
		return nil, fmt.Errorf("bad subnet prefix %q", subnet)
	}

	hosts := make([]string, 0, subnetHosts)

	for i := 1; i <= subnetHosts; i++ {
		hosts = append(hosts, fmt.Sprintf("%s.%d", prefix, i))
	}

	return hosts, nil
}
