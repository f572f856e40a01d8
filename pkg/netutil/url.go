package netutil

import (
	"net/url"

	"github.com/pkg/errors"
)

// ValidateHttpUrl checks that value is an absolute http(s) URL with a usable
// host. Only https is accepted when requireSecureConnection is set.
func ValidateHttpUrl(value string, requireSecureConnection bool) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}

	if requireSecureConnection && parsed.Scheme != "https" {
		return errors.New("url scheme must be https")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}

	if err := ValidateHost(parsed.Hostname()); err != nil {
		return errors.Wrap(err, "invalid url host")
	}

	return nil
}
