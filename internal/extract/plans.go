package extract

import "github.com/paddock-labs/equinet/internal/model"

// Canonical field names shared by all plans. The normalizer only ever sees
// these names, never the source's own column labels.
const (
	FieldAnimal   = "animal"
	FieldClass    = "class"
	FieldPlacing  = "placing"
	FieldStatus   = "status"
	FieldFaults   = "faults"
	FieldTime     = "time"
	FieldEarnings = "earnings"
	FieldCountry  = "country"

	FieldName   = "name"
	FieldBreed  = "breed"
	FieldDOB    = "dob"
	FieldSex    = "sex"
	FieldHeight = "height"
	FieldColor  = "color"
	FieldSire   = "sire"
	FieldDam    = "dam"
	FieldRegID  = "reg_id"

	FieldVenue    = "venue"
	FieldLocation = "location"
	FieldDate     = "date"
)

// BuiltinPlans returns the extraction plans for every built-in source,
// validated and keyed by source name.
func BuiltinPlans() map[string]*Plan {
	plans := []*Plan{feiPlan(), usefPlan(), allbreedPlan(), horsetelexPlan(), stallionRegistryPlan()}

	out := make(map[string]*Plan, len(plans))
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			// Built-in plans are fixed data; a bad one is a programming error.
			panic(err)
		}
		out[p.Source] = p
	}
	return out
}

func feiPlan() *Plan {
	return &Plan{
		Source: "fei",
		Kinds: map[model.RecordKind]*KindPlan{
			model.KindResults: {
				Path: "/results",
				RowSelectors: []string{
					"table.results-table tbody tr",
					"table#resultsGrid tr.result-row",
					"div.results-list div.result",
				},
				Fields: []FieldRule{
					{Name: FieldAnimal, Selector: "td.horse-name, span.horse"},
					{Name: FieldClass, Selector: "td.class-name"},
					{Name: FieldPlacing, Selector: "td.rank", Pattern: `(\d+)`},
					{Name: FieldStatus, Selector: "td.status"},
					{Name: FieldFaults, Selector: "td.faults", Pattern: `(\d+)`},
					{Name: FieldTime, Selector: "td.time", Pattern: `([\d.]+)`},
					{Name: FieldEarnings, Selector: "td.prize"},
					{Name: FieldCountry, Selector: "td.nation span.flag", Attr: "title"},
				},
			},
			model.KindRankings: {
				Path: "/rankings",
				RowSelectors: []string{
					"table.ranking-table tbody tr",
					"table tr.ranking-row",
				},
				Fields: []FieldRule{
					{Name: FieldAnimal, Selector: "td.horse"},
					{Name: FieldPlacing, Selector: "td.position", Pattern: `(\d+)`},
					{Name: FieldCountry, Selector: "td.nation"},
					{Name: FieldEarnings, Selector: "td.points"},
					{Name: FieldStatus, Selector: "td.status"},
				},
			},
			model.KindEvents: {
				Path: "/calendar",
				RowSelectors: []string{
					"table.calendar tbody tr",
					"div.event-card",
				},
				Fields: []FieldRule{
					{Name: FieldName, Selector: "td.event-name, h3.event-title"},
					{Name: FieldVenue, Selector: "td.venue"},
					{Name: FieldLocation, Selector: "td.location"},
					{Name: FieldDate, Selector: "td.date"},
				},
			},
		},
	}
}

func usefPlan() *Plan {
	return &Plan{
		Source: "usef",
		Kinds: map[model.RecordKind]*KindPlan{
			model.KindResults: {
				Path: "/compete/results",
				RowSelectors: []string{
					"table.results tbody tr",
					"table tr",
				},
				Fields: []FieldRule{
					{Name: FieldAnimal, Selector: "td:nth-child(2)"},
					{Name: FieldPlacing, Selector: "td:nth-child(1)", Pattern: `(\d+)`},
					{Name: FieldStatus, Selector: "td:nth-child(1)"},
					{Name: FieldCountry, Selector: "td:nth-child(4)"},
					{Name: FieldEarnings, Selector: "td:nth-child(5)"},
				},
			},
			model.KindEvents: {
				Path: "/compete/calendar",
				RowSelectors: []string{
					"div.competition-listing div.competition",
					"table.calendar tr",
				},
				Fields: []FieldRule{
					{Name: FieldName, Selector: "a.competition-name, td.name"},
					{Name: FieldLocation, Selector: "span.location, td.location"},
					{Name: FieldDate, Selector: "span.dates, td.dates"},
				},
			},
		},
	}
}

func allbreedPlan() *Plan {
	return &Plan{
		Source: "allbreed",
		Kinds: map[model.RecordKind]*KindPlan{
			model.KindAnimals: {
				Path: "/horse",
				RowSelectors: []string{
					"table.pedigree-summary tr.horse-row",
					"div.horse-profile",
				},
				Fields: []FieldRule{
					{Name: FieldName, Selector: "span.horse-name, td.name"},
					{Name: FieldBreed, Selector: "span.breed, td.breed"},
					{Name: FieldCountry, Selector: "span.country, td.country"},
					{Name: FieldDOB, Selector: "span.foaled, td.foaled"},
					{Name: FieldSex, Selector: "span.sex, td.sex"},
					{Name: FieldColor, Selector: "span.color, td.color"},
					{Name: FieldSire, Selector: "a.sire"},
					{Name: FieldDam, Selector: "a.dam"},
					{Name: FieldRegID, Selector: "span.reg-number", Pattern: `([A-Z0-9-]+)`},
				},
			},
		},
	}
}

func horsetelexPlan() *Plan {
	return &Plan{
		Source: "horsetelex",
		Kinds: map[model.RecordKind]*KindPlan{
			model.KindAnimals: {
				Path: "/horses",
				RowSelectors: []string{
					"div.horse-detail dl",
					"table.horse-data tr",
				},
				Fields: []FieldRule{
					{Name: FieldName, Selector: "dd.name, td.name"},
					{Name: FieldBreed, Selector: "dd.studbook, td.studbook"},
					{Name: FieldCountry, Selector: "dd.country, td.country"},
					{Name: FieldDOB, Selector: "dd.birthyear, td.birthyear"},
					{Name: FieldSex, Selector: "dd.gender, td.gender"},
					{Name: FieldHeight, Selector: "dd.height, td.height"},
					{Name: FieldSire, Selector: "dd.father a, td.father"},
					{Name: FieldDam, Selector: "dd.mother a, td.mother"},
					{Name: FieldRegID, Selector: "dd.ueln", Pattern: `([0-9A-Z]{8,15})`},
				},
			},
		},
	}
}

// stallionRegistryPlan exists so the authenticated source still has a shape
// on record; the orchestrator skips the source before it is ever used.
func stallionRegistryPlan() *Plan {
	return &Plan{
		Source: "stallion-registry",
		Kinds: map[model.RecordKind]*KindPlan{
			model.KindAnimals: {
				Path:         "/stallions",
				RowSelectors: []string{"table.stallions tbody tr"},
				Fields: []FieldRule{
					{Name: FieldName, Selector: "td.name"},
					{Name: FieldBreed, Selector: "td.breed"},
					{Name: FieldRegID, Selector: "td.registration"},
				},
			},
		},
	}
}
