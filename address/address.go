/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package address decides whether a request comes from a trusted network.
//
// A List is an ordered set of IPs and CIDR ranges. It always starts from
// loopback and is extended once at boot; afterwards it is read-only and safe
// for concurrent use. Malformed entries fail when the list is built, never at
// request time. Malformed remote addresses are simply not trusted.
package address

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidAddress is returned for entries that are neither an IP nor a
// CIDR range.
var ErrInvalidAddress = errors.New("exnotify: invalid trusted address")

// Loopback are the entries every List starts with.
var Loopback = []string{"127.0.0.1", "::1"}

// List is an immutable set of trusted prefixes.
type List struct {
	prefixes []netip.Prefix
}

// New returns a List holding Loopback plus entries.
func New(entries ...string) (*List, error) {
	l := &List{}
	return l.Consider(append(append([]string(nil), Loopback...), entries...)...)
}

// MustNew is New that panics on malformed entries.
func MustNew(entries ...string) *List {
	l, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return l
}

// Consider returns a new List with entries appended. The receiver is left
// untouched. Entries may be single IPs ("10.1.2.3", "::1") or CIDR ranges
// ("10.0.0.0/8"); duplicates are dropped.
func (l *List) Consider(entries ...string) (*List, error) {
	out := &List{}
	if l != nil {
		out.prefixes = append(out.prefixes, l.prefixes...)
	}
	for _, raw := range entries {
		p, err := ParseEntry(raw)
		if err != nil {
			return nil, err
		}
		if !out.has(p) {
			out.prefixes = append(out.prefixes, p)
		}
	}
	return out, nil
}

// ParseEntry parses a single IP or CIDR entry into a prefix. IPv4-mapped IPv6
// addresses are unmapped so they compare equal to their IPv4 form.
func ParseEntry(raw string) (netip.Prefix, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return netip.Prefix{}, fmt.Errorf("%w: empty entry", ErrInvalidAddress)
	}
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, raw, err)
		}
		if p.Addr().Is4In6() && p.Bits() >= 96 {
			p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
		}
		return p.Masked(), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, raw, err)
	}
	a = a.Unmap().WithZone("")
	return netip.PrefixFrom(a, a.BitLen()), nil
}

// IsTrusted reports whether remote falls inside any trusted entry. remote may
// be a bare IP or "ip:port" (as found in http.Request.RemoteAddr).
// Unparseable input is not trusted.
func (l *List) IsTrusted(remote string) bool {
	a, ok := parseRemote(remote)
	if !ok {
		return false
	}
	return l.Contains(a)
}

// Contains reports whether a falls inside any trusted entry.
func (l *List) Contains(a netip.Addr) bool {
	if l == nil || !a.IsValid() {
		return false
	}
	a = a.Unmap().WithZone("")
	for _, p := range l.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// Entries returns the trusted prefixes in insertion order.
func (l *List) Entries() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.prefixes))
	for i, p := range l.prefixes {
		if p.IsSingleIP() {
			out[i] = p.Addr().String()
			continue
		}
		out[i] = p.String()
	}
	return out
}

func (l *List) has(p netip.Prefix) bool {
	for _, q := range l.prefixes {
		if q == p {
			return true
		}
	}
	return false
}

func parseRemote(remote string) (netip.Addr, bool) {
	s := strings.TrimSpace(remote)
	if s == "" {
		return netip.Addr{}, false
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a, true
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr(), true
	}
	// "[::1]" without a port.
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if a, err := netip.ParseAddr(s[1 : len(s)-1]); err == nil {
			return a, true
		}
	}
	return netip.Addr{}, false
}
