package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Public resolvers raced when the system resolver cannot find the relay.
var publicDNS = []string{
	"1.1.1.1",
	"1.0.0.1",
	"8.8.8.8",
	"8.8.4.4",
	"9.9.9.9",
	"208.67.222.222",
}

const (
	systemLookupTimeout = 1 * time.Second
	publicLookupTimeout = 2 * time.Second
)

type lookupFunc func(ctx context.Context, host string) ([]string, error)

// resolver looks a host up with the system resolver first and falls back to
// racing public DNS servers.
type resolver struct {
	system   lookupFunc
	fallback []lookupFunc
}

func newResolver() *resolver {
	r := &resolver{system: (&net.Resolver{}).LookupHost}
	for _, server := range publicDNS {
		r.fallback = append(r.fallback, publicLookup(server))
	}
	return r
}

func publicLookup(server string) lookupFunc {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	return r.LookupHost
}

// Lookup returns one address for host, preferring IPv4. IP literals are
// returned unchanged.
func (r *resolver) Lookup(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}

	sysCtx, cancel := context.WithTimeout(ctx, systemLookupTimeout)
	ip, err := pick(r.system(sysCtx, host))
	cancel()
	if err == nil {
		return ip, nil
	}

	return r.race(ctx, host)
}

func (r *resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.fallback) == 0 {
		return "", fmt.Errorf("failed to resolve %s", host)
	}

	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, publicLookupTimeout)
	defer cancel()

	results := make(chan result, len(r.fallback))
	for _, lookup := range r.fallback {
		go func() {
			ip, err := pick(lookup(ctx, host))
			results <- result{ip: ip, err: err}
		}()
	}

	for range r.fallback {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("failed to resolve %s: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("failed to resolve %s: all %d public DNS servers failed", host, len(r.fallback))
}

func pick(ips []string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no IP addresses found")
	}
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

// DialContext resolves addr's host through the resolver and dials the
// result.
func (r *resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}
