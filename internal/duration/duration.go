package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Infinite is used for "no upper bound" delays.
const Infinite = time.Duration(math.MaxInt64)

var segment = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zµ]*)`)

// unit aliases accepted in human strings, mapped to str2duration units.
var units = map[string]string{
	"ns": "ns", "nanosecond": "ns", "nanoseconds": "ns",
	"us": "us", "µs": "us", "microsecond": "us", "microseconds": "us",
	"ms": "ms", "msec": "ms", "msecs": "ms", "millisecond": "ms", "milliseconds": "ms",
	"s": "s", "sec": "s", "secs": "s", "second": "s", "seconds": "s",
	"m": "m", "min": "m", "mins": "m", "minute": "m", "minutes": "m",
	"h": "h", "hr": "h", "hrs": "h", "hour": "h", "hours": "h",
	"d": "d", "day": "d", "days": "d",
	"w": "w", "wk": "w", "wks": "w", "week": "w", "weeks": "w",
}

// Parse normalizes v to a time.Duration. Numbers (and numeric strings) are
// milliseconds; strings may be human readable, e.g. "500 ms", "30 seconds",
// "1h30m" or "infinity".
func Parse(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case Duration:
		return time.Duration(x), nil
	case int:
		return number(float64(x))
	case int32:
		return number(float64(x))
	case int64:
		return number(float64(x))
	case uint:
		return number(float64(x))
	case uint64:
		return number(float64(x))
	case float32:
		return number(float64(x))
	case float64:
		return number(x)
	case string:
		return ParseString(x)
	case nil:
		return 0, fmt.Errorf("empty duration")
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

// ParseString parses a human readable duration string.
func ParseString(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return 0, fmt.Errorf("empty duration")
	case "inf", "infinity", "infinite", "unbounded":
		return Infinite, nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return number(f)
	}

	matches := segment.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var (
		b    strings.Builder
		last int
	)
	for _, m := range matches {
		if strings.TrimSpace(s[last:m[0]]) != "" {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		num, unit := s[m[2]:m[3]], s[m[4]:m[5]]
		if unit == "" {
			unit = "ms"
		}
		canon, ok := units[unit]
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, unit)
		}
		b.WriteString(num)
		b.WriteString(canon)
		last = m[1]
	}
	if strings.TrimSpace(s[last:]) != "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	d, err := str2duration.ParseDuration(b.String())
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Format renders d for humans, spelling out Infinite.
func Format(d time.Duration) string {
	if d == Infinite {
		return "infinity"
	}
	return d.String()
}

// number converts a non-negative count of milliseconds.
func number(f float64) (time.Duration, error) {
	if math.IsNaN(f) || f < 0 {
		return 0, fmt.Errorf("invalid duration %v", f)
	}
	return millis(f), nil
}

func millis(f float64) time.Duration {
	if math.IsInf(f, 1) || f >= float64(Infinite/time.Millisecond) {
		return Infinite
	}
	return time.Duration(math.Round(f * float64(time.Millisecond)))
}

// Duration is a time.Duration that decodes from YAML as either a number of
// milliseconds or a human readable string.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return Format(time.Duration(d)) }

// Ptr is a convenience for building optional overrides.
func Ptr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
