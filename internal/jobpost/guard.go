package jobpost

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

var errBlockedAddress = errors.New("job url resolves to a non-public address")

// publicOnlyClient refuses to connect to loopback, private, link-local or unspecified
// addresses. The check runs on the resolved address at dial time so it also covers redirects
// and DNS answers that change between lookups.
func publicOnlyClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: rejectNonPublic}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			if ip := net.ParseIP(req.URL.Hostname()); ip != nil && !isPublic(ip) {
				return errBlockedAddress
			}
			return nil
		},
	}
}

func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("dial %q: %w", address, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublic(ip) {
		return errBlockedAddress
	}
	return nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified())
}
