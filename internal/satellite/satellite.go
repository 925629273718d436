// Package satellite overlays SGP4-propagated Earth satellites onto the
// Keplerian solar-system model. Satellites are loaded from NORAD two-line
// element sets and composed into the heliocentric frame through the host
// body's published position.
package satellite

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	sgp4 "github.com/joshuaferrara/go-satellite"

	"github.com/theaklair/jsorrery/internal/vec"
)

// Entry is one parsed two-line element set.
type Entry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// ParseTLE reads 3-line NORAD TLE records from r. Malformed records are
// skipped with a warning log rather than failing the whole catalog.
func ParseTLE(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i+2 < len(lines); {
		name, line1, line2 := lines[i], lines[i+1], lines[i+2]
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE record", "line_index", i, "name", name)
			i++
			continue
		}

		noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
		if err != nil {
			logger.Warn("skipping TLE record with invalid NORAD ID", "name", name)
			i += 3
			continue
		}
		if len(line1) < 32 {
			logger.Warn("skipping TLE record with short line 1", "name", name)
			i += 3
			continue
		}
		epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
		if err != nil {
			logger.Warn("skipping TLE record with invalid epoch", "name", name, "error", err)
			i += 3
			continue
		}

		entries = append(entries, Entry{
			NORADID: noradID,
			Name:    strings.TrimSpace(name),
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
		i += 3
	}
	return entries, nil
}

// parseEpoch converts a TLE epoch in YYDDD.DDDDDDDD form. Years 00-56 map to
// the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}
	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year: %w", err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}
	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day: %w", err)
	}
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}

// tracked pairs an entry with its initialized SGP4 model.
type tracked struct {
	entry Entry
	sat   sgp4.Satellite
}

// Tracker propagates a fixed set of satellites and places them in the
// heliocentric frame relative to a host body.
type Tracker struct {
	host    string
	tracked []tracked
	logger  *slog.Logger
}

// NewTracker initializes SGP4 models for every entry. Entries whose element
// sets the model rejects are dropped with a warning. host names the registry
// body the TEME positions are relative to, normally "earth".
func NewTracker(host string, entries []Entry, logger *slog.Logger) *Tracker {
	t := &Tracker{host: host, logger: logger}
	for _, e := range entries {
		if err := validateLines(e.Line1, e.Line2); err != nil {
			logger.Warn("rejecting TLE", "norad_id", e.NORADID, "name", e.Name, "error", err)
			continue
		}
		sat := sgp4.TLEToSat(e.Line1, e.Line2, sgp4.GravityWGS84)
		if sat.Error != 0 {
			logger.Warn("sgp4 init failed", "norad_id", e.NORADID, "code", sat.Error)
			continue
		}
		t.tracked = append(t.tracked, tracked{entry: e, sat: sat})
	}
	return t
}

// validateLines checks TLE line shape before handing it to the SGP4 library,
// which terminates the process on unparseable input.
func validateLines(line1, line2 string) error {
	if len(line1) != 69 {
		return fmt.Errorf("line 1 length %d, want 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line 2 length %d, want 69", len(line2))
	}
	if line1[0] != '1' || line2[0] != '2' {
		return fmt.Errorf("line numbers malformed")
	}
	return nil
}

// Len returns the number of successfully initialized satellites.
func (t *Tracker) Len() int { return len(t.tracked) }

// State is one satellite's propagated state. HostRelative is the TEME
// position about the host body; Position composes it into the heliocentric
// frame when the host is resolvable, and equals HostRelative otherwise.
type State struct {
	NORADID      int       `json:"norad_id"`
	Name         string    `json:"name"`
	Epoch        time.Time `json:"epoch"`
	HostRelative vec.V3    `json:"host_relative"`
	Position     vec.V3    `json:"position"`
	Velocity     vec.V3    `json:"velocity"`
	AltitudeKm   float64   `json:"altitude_km"`
}

// earthRadiusKm is the WGS84 mean equatorial radius used for the altitude
// figure and the propagation sanity bounds.
const earthRadiusKm = 6378.137

// Host returns the name of the body the TEME frame is anchored to.
func (t *Tracker) Host() string { return t.host }

// States propagates every tracked satellite to at and composes the results
// onto hostPos, the host body's absolute position. The caller resolves
// hostPos from a published state snapshot so no live body state is read here.
// Satellites whose propagation degenerates (NaN, or radius outside low/high
// orbit bounds) are skipped.
func (t *Tracker) States(hostPos vec.V3, at time.Time) []State {
	out := make([]State, 0, len(t.tracked))
	for _, tr := range t.tracked {
		at := at.UTC()
		pos, vel := sgp4.Propagate(tr.sat, at.Year(), int(at.Month()), at.Day(),
			at.Hour(), at.Minute(), at.Second())

		rel := vec.V3{X: pos.X, Y: pos.Y, Z: pos.Z}
		r := rel.Length()
		if math.IsNaN(r) || r < earthRadiusKm || r > 50000 {
			t.logger.Warn("sgp4 propagation degenerate",
				"norad_id", tr.entry.NORADID, "radius_km", r)
			continue
		}

		out = append(out, State{
			NORADID:      tr.entry.NORADID,
			Name:         tr.entry.Name,
			Epoch:        tr.entry.Epoch,
			HostRelative: rel,
			Position:     hostPos.Add(rel),
			Velocity:     vec.V3{X: vel.X, Y: vel.Y, Z: vel.Z},
			AltitudeKm:   r - earthRadiusKm,
		})
	}
	return out
}
