package resolver

import "net"

// IsReserved reports whether ip is loopback, private, link-local or
// unspecified. Public hostnames answering with such addresses usually
// point at a poisoned or split-horizon resolver.
func IsReserved(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() ||
		parsed.IsPrivate() ||
		parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() ||
		parsed.IsLinkLocalMulticast()
}
