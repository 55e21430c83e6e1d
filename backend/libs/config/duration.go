package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// Duration is a time.Duration written in config as an ISO 8601 duration
// ("PT15M", "P7D"). Plain Go duration strings ("15m") are accepted too.
type Duration time.Duration

// Std returns the value as time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration in ISO 8601 form.
func (d Duration) String() string {
	return duration.Format(time.Duration(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		*d = 0
		return nil
	}
	if strings.HasPrefix(strings.ToUpper(raw), "P") {
		parsed, err := duration.Parse(strings.ToUpper(raw))
		if err != nil {
			return fmt.Errorf("config: invalid iso8601 duration %q: %w", raw, err)
		}
		*d = Duration(parsed.ToTimeDuration())
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}
