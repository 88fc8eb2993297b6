package ad360

import (
	"errors"
	"fmt"
	"strings"

	"garagevision-backend/lib/browser"
)

// ErrNeedsRelink means there is no usable supplier session: either none
// was ever stored, or the portal no longer accepts the stored cookies.
// It is never retried here; the caller must run the interactive link
// flow again.
var ErrNeedsRelink = errors.New("supplier session missing or expired, account must be relinked")

// ErrBrowserUnavailable surfaces when every browser launch strategy has
// been exhausted. Operational, not user-actionable.
var ErrBrowserUnavailable = browser.ErrUnavailable

// NavigationError means a required interactive control could not be
// located after exhausting its candidate selectors, which usually means
// the portal markup changed shape.
type NavigationError struct {
	Step      string
	Selectors []string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf(
		"navigation step %q: no element matched any of: %s",
		e.Step, strings.Join(e.Selectors, ", "),
	)
}
