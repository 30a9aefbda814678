package databricks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingConfig marks a mint attempt made without the four required
// workspace values. It is raised before any network call.
var ErrMissingConfig = errors.New("missing databricks configuration")

// UpstreamError is a non-2xx answer from the Databricks workspace at one of
// the three exchange steps. Status and body are kept verbatim so an operator
// can diagnose the failure from the response alone.
type UpstreamError struct {
	Step       string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("databricks %s failed: status %d: %s", e.Step, e.StatusCode, e.Body)
}

func missingConfigError(missing []string) error {
	return fmt.Errorf("%w: set %s in the environment", ErrMissingConfig, strings.Join(missing, ", "))
}
