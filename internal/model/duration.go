package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseISODuration parses the ISO-8601 duration subset used by velocity
// windows: PnDTnHnMnS with integer designators, e.g. "PT5M", "PT1H", "P1D".
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	if !strings.HasPrefix(s, "P") || len(s) < 2 {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
	}
	s = s[1:]

	datePart := s
	timePart := ""
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		datePart, timePart = s[:i], s[i+1:]
		if timePart == "" {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q", orig)
		}
	}

	var total time.Duration
	consume := func(part string, units map[byte]time.Duration) error {
		for len(part) > 0 {
			i := 0
			for i < len(part) && part[i] >= '0' && part[i] <= '9' {
				i++
			}
			if i == 0 || i == len(part) {
				return fmt.Errorf("invalid ISO-8601 duration %q", orig)
			}
			n, err := strconv.Atoi(part[:i])
			if err != nil {
				return fmt.Errorf("invalid ISO-8601 duration %q: %w", orig, err)
			}
			unit, ok := units[part[i]]
			if !ok {
				return fmt.Errorf("invalid ISO-8601 duration %q: unsupported designator %q", orig, string(part[i]))
			}
			total += time.Duration(n) * unit
			part = part[i+1:]
		}
		return nil
	}

	if err := consume(datePart, map[byte]time.Duration{'D': 24 * time.Hour}); err != nil {
		return 0, err
	}
	if err := consume(timePart, map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	}); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q: zero length", orig)
	}
	return total, nil
}
