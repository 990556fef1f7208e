// Package lookup resolves hostnames through the resolver configured on the host
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// DefaultResolvConf is where the system resolver reads its nameservers from
const DefaultResolvConf = "/etc/resolv.conf"

// Resolver is satisfied by *net.Resolver
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Family restricts which kind of addresses are returned
type Family int

const (
	AnyFamily Family = iota
	IPv4
	IPv6
)

// network returns the network name understood by net.Resolver.LookupIP
func (f Family) network() string {
	switch f {
	case IPv4:
		return "ip4"
	case IPv6:
		return "ip6"
	}
	return "ip"
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return "any"
}

func (f Family) matches(ip net.IP) bool {
	switch f {
	case IPv4:
		return ip.To4() != nil
	case IPv6:
		return ip.To4() == nil && ip.To16() != nil
	}
	return true
}

var errNoAddresses = errors.New("no addresses found")

// Error is returned when the resolver could not produce any address for a host
type Error struct {
	Host   string
	Family Family
	Err    error
}

func (e *Error) Error() string {
	if e.Family != AnyFamily {
		return fmt.Sprintf("unable to resolve %s (%v): %v", e.Host, e.Family, e.Err)
	}
	return fmt.Sprintf("unable to resolve %s: %v", e.Host, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports whether the host does not exist, as opposed to the lookup failing
func (e *Error) NotFound() bool {
	if errors.Is(e.Err, errNoAddresses) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(e.Err, &dnsErr) && dnsErr.IsNotFound
}

// Resolve looks up the addresses of host, keeping the order chosen by the
// resolver and dropping duplicates.
func Resolve(ctx context.Context, r Resolver, host string, family Family) ([]net.IP, error) {
	ips, err := r.LookupIP(ctx, family.network(), host)
	if err != nil {
		return nil, &Error{Host: host, Family: family, Err: err}
	}

	var out []net.IP
	seen := make(map[string]bool)
	for _, ip := range ips {
		if !family.matches(ip) {
			continue
		}
		key := ip.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ip)
	}

	if len(out) == 0 {
		return nil, &Error{Host: host, Family: family, Err: errNoAddresses}
	}
	return out, nil
}

// SystemNameservers lists the nameservers in a resolv.conf file, each as host:port
func SystemNameservers(path string) ([]string, error) {
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %v: %w", path, err)
	}

	var servers []string
	for _, server := range conf.Servers {
		servers = append(servers, net.JoinHostPort(server, conf.Port))
	}
	return servers, nil
}
