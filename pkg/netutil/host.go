package netutil

import (
	"net"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

const maxDomainNameSize = 253

// ValidateHost checks that host is an IP literal or a domain name that can be
// looked up. Internationalized names are accepted and checked in their ASCII
// form.
func ValidateHost(host string) error {
	if len(host) == 0 {
		return errors.New("host is empty")
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil {
		return errors.Wrap(err, "domain name is invalid")
	}
	if len(ascii) > maxDomainNameSize {
		return errors.New("domain name length exceeds limit")
	}
	return nil
}
