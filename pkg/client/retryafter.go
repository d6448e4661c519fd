package client

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var integerSeconds = regexp.MustCompile(`^\d+$`)

// parseRetryAfter interprets a Retry-After header value. A pure integer
// is a second count; anything else must be an HTTP-date, whose wait is
// computed relative to now. A date in the past yields zero.
func parseRetryAfter(value string, now time.Time) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("missing Retry-After header on 429 response")
	}

	if integerSeconds.MatchString(value) {
		secs, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("malformed Retry-After header %q: %v", value, err)
		}
		return time.Duration(secs) * time.Second, nil
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, fmt.Errorf("malformed Retry-After header %q: %v", value, err)
	}

	wait := at.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}
