package pct

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cuemby/hutch/pkg/errdefs"
)

var (
	hostnameLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	netSpecChars  = regexp.MustCompile(`^[a-zA-Z0-9Kk=,.:/_-]+$`)
)

// ValidateHostname rejects hostnames that are not safe to place on a
// command line or not valid per hostname rules.
func ValidateHostname(hostname string) error {
	if hostname == "" || len(hostname) > 253 {
		return fmt.Errorf("hostname %q: bad length: %w", hostname, errdefs.ErrInvalidArgument)
	}
	for _, label := range strings.Split(hostname, ".") {
		if !hostnameLabel.MatchString(label) {
			return fmt.Errorf("hostname %q: invalid label %q: %w", hostname, label, errdefs.ErrInvalidArgument)
		}
	}
	return nil
}

// ValidateNetSpec restricts a net0 specification to the characters a pct
// network spec legitimately uses. Anything else never reaches the command
// line.
func ValidateNetSpec(spec string) error {
	if spec == "" || len(spec) > 512 {
		return fmt.Errorf("net spec: bad length: %w", errdefs.ErrInvalidArgument)
	}
	if !netSpecChars.MatchString(spec) {
		return fmt.Errorf("net spec %q contains unsafe characters: %w", spec, errdefs.ErrInvalidArgument)
	}
	return nil
}
