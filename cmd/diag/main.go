// Command diag prints an ephemeris table for the configured catalog: the
// absolute position, heliocentric distance, and orbital period of every body
// at a given instant. Useful for cross-checking element tables against
// published ephemerides.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/theaklair/jsorrery/internal/catalog"
	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	at := time.Now().UTC()
	if len(os.Args) > 1 {
		t, err := time.Parse(time.RFC3339, os.Args[1])
		if err != nil {
			fmt.Println("ERROR parsing date (want RFC3339):", err)
			os.Exit(1)
		}
		at = t
	}

	defs, err := catalog.Load(os.Getenv("ORRERY_CATALOG"))
	if err != nil {
		fmt.Println("ERROR loading catalog:", err)
		os.Exit(1)
	}
	reg := catalog.BuildRegistry(defs)
	logger.Info("catalog loaded", "bodies", reg.Len())

	days := ephem.DaysSinceJ2000(at)
	fmt.Printf("Ephemeris at %s (JD %.5f, %+.3f days since J2000)\n\n",
		at.Format(time.RFC3339), ephem.JulianDate(at), days)
	fmt.Printf("%-10s %14s %14s %14s %12s %12s\n",
		"body", "x (km)", "y (km)", "z (km)", "r (AU)", "period (d)")

	for _, b := range reg.Ordered() {
		if b.Central {
			fmt.Printf("%-10s %14.4g %14.4g %14.4g %12s %12s\n", b.Name, 0.0, 0.0, 0.0, "-", "-")
			continue
		}

		pos, _ := reg.AbsolutePositionAt(b.Name, at)

		periodStr := "-"
		el := b.ElementsAt(days)
		if period, ok := orbit.Period(el.A, reg.Mu(b.RelativeTo)); ok {
			periodStr = fmt.Sprintf("%.2f", period/ephem.SecondsPerDay)
		}

		fmt.Printf("%-10s %14.4g %14.4g %14.4g %12.5f %12s\n",
			b.Name, pos.X, pos.Y, pos.Z, pos.Length()/ephem.AU, periodStr)
	}
}
