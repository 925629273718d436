// Package catalog provides the built-in solar-system body definitions and
// the YAML overlay loader. Built-in planetary elements are the J2000
// Keplerian approximations with linear secular rates; the YAML file can add
// bodies (probes, comets, minor planets) or replace built-in ones.
package catalog

import (
	"github.com/theaklair/jsorrery/internal/body"
	"github.com/theaklair/jsorrery/internal/ephem"
	"github.com/theaklair/jsorrery/internal/orbit"
)

// Definition describes one body in catalog units: kilometers for distance,
// degrees for angles, rates per Julian day.
type Definition struct {
	Name       string       `yaml:"name"`
	MassKg     float64      `yaml:"mass_kg"`
	Central    bool         `yaml:"central"`
	RelativeTo string       `yaml:"relative_to"`
	Elements   ElementsSpec `yaml:"elements"`
	Rates      ElementsSpec `yaml:"rates"`
}

// ElementsSpec holds the six elements in catalog units.
type ElementsSpec struct {
	AKm     float64 `yaml:"a_km"`
	E       float64 `yaml:"e"`
	IDeg    float64 `yaml:"i_deg"`
	NodeDeg float64 `yaml:"node_deg"`
	PeriDeg float64 `yaml:"peri_deg"`
	MDeg    float64 `yaml:"m_deg"`
}

func (s ElementsSpec) elements() orbit.Elements {
	return orbit.Elements{
		A:    s.AKm,
		E:    s.E,
		I:    ephem.Deg2Rad(s.IDeg),
		Node: ephem.Deg2Rad(s.NodeDeg),
		Peri: ephem.Deg2Rad(s.PeriDeg),
		M:    ephem.Deg2Rad(s.MDeg),
	}
}

// Set converts the definition to the internal element set (km, radians,
// rates per day).
func (d Definition) Set() orbit.Set {
	return orbit.Set{Base: d.Elements.elements(), Rates: d.Rates.elements()}
}

// planet is one row of the J2000 planetary table: mean elements in AU and
// degrees, rates per Julian century, with mean longitude L and longitude of
// perihelion ϖ as published.
type planet struct {
	name                    string
	massKg                  float64
	a, e, i, l, lp, node    float64
	da, de, di, dl, dlp, dn float64
}

// J2000 Keplerian elements and centennial rates, valid 1800 AD – 2050 AD.
var planets = []planet{
	{"mercury", 3.301e23,
		0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081},
	{"venus", 4.867e24,
		0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418},
	{"earth", 5.972e24,
		1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0,
		0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0},
	{"mars", 6.417e23,
		1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343},
	{"jupiter", 1.898e27,
		5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106},
	{"saturn", 5.683e26,
		9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794},
	{"uranus", 8.681e25,
		19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
		-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589},
	{"neptune", 1.024e26,
		30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
		0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664},
}

// definition converts a table row: the published L/ϖ pair becomes argument
// of perihelion ω = ϖ − Ω and mean anomaly M = L − ϖ, and centennial rates
// become daily rates.
func (p planet) definition() Definition {
	perCentury := func(v float64) float64 { return v / ephem.DaysPerCentury }
	return Definition{
		Name:       p.name,
		MassKg:     p.massKg,
		RelativeTo: "sun",
		Elements: ElementsSpec{
			AKm:     p.a * ephem.AU,
			E:       p.e,
			IDeg:    p.i,
			NodeDeg: p.node,
			PeriDeg: p.lp - p.node,
			MDeg:    p.l - p.lp,
		},
		Rates: ElementsSpec{
			AKm:     perCentury(p.da * ephem.AU),
			E:       perCentury(p.de),
			IDeg:    perCentury(p.di),
			NodeDeg: perCentury(p.dn),
			PeriDeg: perCentury(p.dlp - p.dn),
			MDeg:    perCentury(p.dl - p.dlp),
		},
	}
}

// Builtin returns the built-in solar-system definitions: the Sun as the
// universal central body, the eight planets, and the Moon.
func Builtin() []Definition {
	defs := []Definition{
		{Name: "sun", MassKg: 1.989e30, Central: true},
	}
	for _, p := range planets {
		defs = append(defs, p.definition())
	}
	defs = append(defs, Definition{
		Name:       "moon",
		MassKg:     7.342e22,
		RelativeTo: "earth",
		Elements: ElementsSpec{
			AKm:     384400,
			E:       0.0549,
			IDeg:    5.145,
			NodeDeg: 125.08,
			PeriDeg: 318.15,
			MDeg:    115.36,
		},
		Rates: ElementsSpec{
			// Anomalistic mean motion, apsidal precession, nodal regression.
			MDeg:    13.06499,
			PeriDeg: 0.11140,
			NodeDeg: -0.05295,
		},
	})
	return defs
}

// BuildRegistry constructs an initialized body registry from definitions.
func BuildRegistry(defs []Definition) *body.Registry {
	reg := body.NewRegistry()
	for _, d := range defs {
		b := body.New(d.Name, d.MassKg, d.Set(), body.Hooks{})
		b.Central = d.Central
		b.RelativeTo = d.RelativeTo
		b.Init()
		reg.Add(b)
	}
	return reg
}
