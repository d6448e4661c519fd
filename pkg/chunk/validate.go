package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

var entityPattern = regexp.MustCompile(`^(?:Q|P)\d+$`)

// forbiddenTitleChars are characters a wiki page title may never
// contain ("_" is deliberately allowed).
const forbiddenTitleChars = "#<>[]|{}"

// InvalidInputError reports a malformed identifier or title. It is
// detected before any network request is sent.
type InvalidInputError struct {
	Item   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input %q: %s", e.Item, e.Reason)
}

// ConfigError reports a caller programming error such as an invalid
// chunk size or an unsupported worker result shape.
type ConfigError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Entities validates a list of entity ids ((Q|P)\d+ after trimming),
// removing duplicates while preserving first-occurrence order.
func Entities(items []string) ([]string, error) {
	cleaned := clean(items)
	if len(cleaned) == 0 {
		return nil, &InvalidInputError{Reason: "no non-empty entity ids"}
	}
	for _, id := range cleaned {
		if !entityPattern.MatchString(id) {
			return nil, &InvalidInputError{Item: id, Reason: `entity id must match (Q|P)\d+`}
		}
	}
	return dedup(cleaned), nil
}

// Titles validates a list of page titles (no forbidden characters after
// trimming), removing duplicates while preserving first-occurrence order.
func Titles(items []string) ([]string, error) {
	cleaned := clean(items)
	if len(cleaned) == 0 {
		return nil, &InvalidInputError{Reason: "no non-empty titles"}
	}
	for _, title := range cleaned {
		if i := strings.IndexAny(title, forbiddenTitleChars); i >= 0 {
			return nil, &InvalidInputError{
				Item:   title,
				Reason: fmt.Sprintf("title contains forbidden character %q", title[i]),
			}
		}
	}
	return dedup(cleaned), nil
}

// clean trims all items and drops the ones that are empty afterwards.
func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// dedup removes duplicates, first occurrence wins.
func dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
