package gas

import "strings"

type Species int

const (
	Methane Species = iota
	Ethane
	Propane
	IsoButane
	NButane
	IsoPentane
	NPentane
	Hexane
	Nitrogen
	CarbonDioxide
	HydrogenSulfide
	Hydrogen
	Oxygen
	Helium
	Argon
	CarbonMonoxide
	speciesCount
)

// Critical holds pure-component properties: Tc in °R, Pc in psia and the
// acentric factor.
type Critical struct {
	Tc    float64
	Pc    float64
	Omega float64
}

type speciesInfo struct {
	formula  string
	mixName  string // component name in the AGA8 mixture schema
	critical Critical
}

var speciesTable = [speciesCount]speciesInfo{
	Methane:         {"CH4", "methane", Critical{343.0, 667.0, 0.0115}},
	Ethane:          {"C2H6", "ethane", Critical{549.8, 708.0, 0.0995}},
	Propane:         {"C3H8", "propane", Critical{666.0, 616.0, 0.1523}},
	IsoButane:       {"iC4", "isobutane", Critical{735.4, 527.9, 0.1770}},
	NButane:         {"nC4", "n_butane", Critical{765.3, 550.7, 0.2002}},
	IsoPentane:      {"iC5", "isopentane", Critical{829.9, 490.4, 0.2275}},
	NPentane:        {"nC5", "n_pentane", Critical{845.4, 488.6, 0.2515}},
	Hexane:          {"C6", "n_hexane", Critical{913.4, 436.9, 0.3013}},
	Nitrogen:        {"N2", "nitrogen", Critical{227.2, 492.3, 0.0377}},
	CarbonDioxide:   {"CO2", "carbon_dioxide", Critical{547.6, 1071.0, 0.2236}},
	HydrogenSulfide: {"H2S", "hydrogen_sulfide", Critical{672.4, 1306.0, 0.0942}},
	Hydrogen:        {"H2", "hydrogen", Critical{59.7, 188.0, -0.2160}},
	Oxygen:          {"O2", "oxygen", Critical{278.6, 731.4, 0.0222}},
	Helium:          {"He", "helium", Critical{12.9, 33.3, -0.3900}},
	Argon:           {"Ar", "argon", Critical{268.9, 706.6, -0.0022}},
	CarbonMonoxide:  {"CO", "carbon_monoxide", Critical{239.9, 507.1, 0.0482}},
}

// mixture components the AGA8 schema knows but the critical table does not
var extraMixNames = []string{"water", "n_heptane", "n_octane", "n_nonane", "n_decane"}

var synonyms = map[string]Species{
	"CH4": Methane, "C1": Methane, "METHANE": Methane,
	"C2H6": Ethane, "C2": Ethane, "ETHANE": Ethane,
	"C3H8": Propane, "C3": Propane, "PROPANE": Propane,
	"IC4": IsoButane, "ISOBUTANE": IsoButane,
	"NC4": NButane, "NBUTANE": NButane, "BUTANE": NButane,
	"IC5": IsoPentane, "ISOPENTANE": IsoPentane,
	"NC5": NPentane, "NPENTANE": NPentane, "PENTANE": NPentane,
	"C6": Hexane, "C6H14": Hexane, "NC6": Hexane, "HEXANE": Hexane,
	"N2": Nitrogen, "NITROGEN": Nitrogen,
	"CO2": CarbonDioxide,
	"H2S": HydrogenSulfide,
	"H2": Hydrogen, "HYDROGEN": Hydrogen,
	"O2": Oxygen, "OXYGEN": Oxygen,
	"HE": Helium, "HELIUM": Helium,
	"AR": Argon, "ARGON": Argon,
	"CO": CarbonMonoxide,
}

var mixNames = func() map[string]Species {
	m := make(map[string]Species, speciesCount)
	for s := Species(0); s < speciesCount; s++ {
		m[speciesTable[s].mixName] = s
	}
	return m
}()

func (s Species) valid() bool {
	return s >= 0 && s < speciesCount
}

func (s Species) String() string {
	if !s.valid() {
		return "unknown"
	}
	return speciesTable[s].formula
}

// MixName returns the component name used by equation-of-state evaluators.
func (s Species) MixName() string {
	if !s.valid() {
		return ""
	}
	return speciesTable[s].mixName
}

// Critical returns the critical properties of s; ok is false for species
// missing from the table.
func (s Species) Critical() (c Critical, ok bool) {
	if !s.valid() {
		return Critical{}, false
	}
	return speciesTable[s].critical, true
}

func AllSpecies() []Species {
	xs := make([]Species, speciesCount)
	for i := range xs {
		xs[i] = Species(i)
	}
	return xs
}

// LookupSpecies resolves a species by formula, synonym or spelled-out name,
// ignoring case.
func LookupSpecies(name string) (Species, bool) {
	s, ok := synonyms[strings.ToUpper(strings.TrimSpace(name))]
	return s, ok
}

// LookupMixName resolves a species by its evaluator component name.
func LookupMixName(name string) (Species, bool) {
	s, ok := mixNames[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Mixture is a composition keyed by evaluator component names.
type Mixture map[string]float64

// MixNames returns every component name of the evaluator schema in a stable order.
func MixNames() []string {
	xs := make([]string, 0, int(speciesCount)+len(extraMixNames))
	for s := Species(0); s < speciesCount; s++ {
		xs = append(xs, speciesTable[s].mixName)
	}
	return append(xs, extraMixNames...)
}

// Composition converts the mixture back to species. Components without a
// critical-table entry are dropped.
func (m Mixture) Composition() Composition {
	c := make(Composition)
	for k, x := range m {
		if s, ok := mixNames[k]; ok && x > 0 {
			c[s] = x
		}
	}
	return c
}
