package lifecycle

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cuemby/hutch/pkg/errdefs"
)

// containerIDPattern limits container ids to the characters that are safe
// as filesystem path components and command-line arguments.
var containerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,62}$`)

// validateContainerID rejects ids that could escape the store roots or
// smuggle options onto a command line. Every public engine operation
// validates before the id reaches a store, a work directory or a tool.
func validateContainerID(id string) error {
	if !containerIDPattern.MatchString(id) {
		return fmt.Errorf("container id %q: unsafe characters or bad length: %w", id, errdefs.ErrInvalidArgument)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("container id %q: dotted traversal: %w", id, errdefs.ErrInvalidArgument)
	}
	return nil
}
