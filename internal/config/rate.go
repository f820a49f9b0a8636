package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRate is returned by ParseRate for a malformed limit.
var ErrInvalidRate = errors.New("invalid rate limit")

// Rate is a request budget per fixed window.
type Rate struct {
	Requests int
	Window   time.Duration
	// window is the window as written, used in messages ("1 minute").
	window string
}

// String renders r the way rejection messages quote it, e.g. "10 per 1 minute".
func (r Rate) String() string {
	w := r.window
	if w == "" {
		w = r.Window.String()
	}
	return fmt.Sprintf("%d per %s", r.Requests, w)
}

var rateUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRate parses "<count>/<window>" or "<count> per <window>". The window
// is a unit (second, minute, hour, day; plural allowed) optionally preceded
// by a multiplier ("5 minutes"), or a Go duration ("30s").
func ParseRate(s string) (Rate, error) {
	raw := strings.TrimSpace(s)
	count, window, ok := strings.Cut(raw, "/")
	if !ok {
		count, window, ok = strings.Cut(strings.ToLower(raw), " per ")
	}
	if !ok {
		return Rate{}, fmt.Errorf("%w %q: want <count>/<window> or <count> per <window>", ErrInvalidRate, s)
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Rate{}, fmt.Errorf("%w %q: count must be a positive integer", ErrInvalidRate, s)
	}

	d, label, err := parseWindow(strings.ToLower(strings.TrimSpace(window)))
	if err != nil {
		return Rate{}, fmt.Errorf("%w %q: %v", ErrInvalidRate, s, err)
	}
	return Rate{Requests: n, Window: d, window: label}, nil
}

func parseWindow(w string) (time.Duration, string, error) {
	if w == "" {
		return 0, "", errors.New("empty window")
	}

	mult := 1
	unit := w
	if fields := strings.Fields(w); len(fields) == 2 {
		m, err := strconv.Atoi(fields[0])
		if err != nil || m <= 0 {
			return 0, "", fmt.Errorf("bad multiplier %q", fields[0])
		}
		mult, unit = m, fields[1]
	} else if len(fields) > 2 {
		return 0, "", fmt.Errorf("bad window %q", w)
	}

	singular := strings.TrimSuffix(unit, "s")
	if base, ok := rateUnits[singular]; ok {
		label := fmt.Sprintf("%d %s", mult, singular)
		if mult > 1 {
			label += "s"
		}
		return time.Duration(mult) * base, label, nil
	}

	if mult == 1 && !strings.Contains(w, " ") {
		d, err := time.ParseDuration(w)
		if err == nil && d > 0 {
			return d, d.String(), nil
		}
	}
	return 0, "", fmt.Errorf("unknown window %q", w)
}
