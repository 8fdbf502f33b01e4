package auth

import "net"

// nonRoutableNets is the exact set of ranges a redirect_uri is allowed to
// target over plain http without tripping the routability guard: unbound
// ("this host"), loopback, and link-local, in both address families. A LAN
// address like 10.0.0.5 is deliberately NOT included here — it is reachable
// by anything else on that network, which is exactly the unencrypted
// transit this guard exists to block.
var nonRoutableNets = func() []*net.IPNet {
	cidrs := []string{
		"0.0.0.0/8",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"::/128",
		"::1/128",
		"fe80::/10",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}()

// isRoutable reports whether host is (or resolves to) an address reachable
// from the public internet. A plain "localhost" by name is treated as
// non-routable without a DNS lookup, matching how the loopback server
// always advertises its own literal bind address.
func isRoutable(host string) bool {
	if host == "localhost" {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		// Not a literal IP and not "localhost" - treat as routable so the
		// guard fails closed on anything we can't prove is safe.
		return true
	}
	for _, n := range nonRoutableNets {
		if n.Contains(ip) {
			return false
		}
	}
	return true
}

// checkRoutability rejects plain-http redirect URIs that target a publicly
// routable host. https is always allowed; http is only allowed to loopback
// and private-network addresses, since the authorization code would
// otherwise transit an attacker-observable network unencrypted.
func checkRoutability(scheme, host string) error {
	if scheme != "http" {
		return nil
	}
	if isRoutable(host) {
		return ErrRoutabilityViolation
	}
	return nil
}
