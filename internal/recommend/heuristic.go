package recommend

import (
	"math"
	"strings"
)

const (
	GeneralistContractor = "generalist contractor"
	AerospaceEngineer    = "aerospace engineer"

	defaultRate       = 50.0
	defaultWeeks      = 2
	wordsPerExtraHire = 50
	aerospaceMinTeam  = 3
)

type specialty struct {
	name      string
	keywords  []string
	rate      float64
	weeks     int
	component string
}

// specialties is ordered; matched specialties keep this order.
var specialties = []specialty{
	{
		name:      "mechanical engineer",
		keywords:  []string{"mechanical", "engine", "bike", "motor", "gearbox", "machinery", "hydraulic"},
		rate:      85,
		weeks:     4,
		component: "Mechanical design and repair",
	},
	{
		name:      AerospaceEngineer,
		keywords:  []string{"aerospace", "aircraft", "airplane", "aviation", "avionics", "drone", "rocket", "satellite"},
		rate:      120,
		weeks:     8,
		component: "Aerospace systems engineering",
	},
	{
		name:      "electrical engineer",
		keywords:  []string{"electrical", "electronics", "circuit", "wiring", "pcb", "solar", "battery"},
		rate:      90,
		weeks:     4,
		component: "Electrical systems design",
	},
	{
		name:      "civil engineer",
		keywords:  []string{"civil", "bridge", "foundation", "structural", "concrete", "road", "drainage"},
		rate:      95,
		weeks:     6,
		component: "Civil and structural engineering",
	},
	{
		name:      "software developer",
		keywords:  []string{"software", "website", "web app", "mobile app", "programming", "backend", "frontend", "database"},
		rate:      100,
		weeks:     6,
		component: "Software development",
	},
	{
		name:      "graphic designer",
		keywords:  []string{"graphic", "logo", "branding", "illustration", "poster", "flyer"},
		rate:      60,
		weeks:     2,
		component: "Graphic design",
	},
	{
		name:      "carpenter",
		keywords:  []string{"carpentry", "carpenter", "wood", "furniture", "cabinet", "deck", "framing"},
		rate:      55,
		weeks:     3,
		component: "Carpentry and woodwork",
	},
	{
		name:      "plumber",
		keywords:  []string{"plumbing", "plumber", "pipe", "leak", "faucet", "water heater", "sewer"},
		rate:      65,
		weeks:     1,
		component: "Plumbing installation and repair",
	},
	{
		name:      "welder",
		keywords:  []string{"weld", "fabrication", "sheet metal", "steel frame", "soldering"},
		rate:      70,
		weeks:     2,
		component: "Welding and metal fabrication",
	},
	{
		name:      "marketing specialist",
		keywords:  []string{"marketing", "seo", "social media", "advertising", "campaign", "newsletter"},
		rate:      70,
		weeks:     3,
		component: "Marketing and outreach",
	},
	{
		name:      GeneralistContractor,
		keywords:  []string{"handyman", "renovation", "odd jobs", "general contractor", "remodel"},
		rate:      40,
		weeks:     defaultWeeks,
		component: "General contracting tasks",
	},
}

var specialtyIndex = func() map[string]specialty {
	idx := make(map[string]specialty, len(specialties))
	for _, s := range specialties {
		idx[s.name] = s
	}
	return idx
}()

// Heuristic builds a Recommendation from keyword matches alone. It is a pure
// function and accepts any input, including the empty string.
func Heuristic(description string) *Recommendation {
	text := strings.ToLower(description)

	matched := matchSpecialties(text)
	if len(matched) == 0 {
		matched = []string{GeneralistContractor}
	}

	rec := &Recommendation{
		Specialties:   matched,
		NumPeople:     teamSize(matched, len(strings.Fields(text))),
		EstimatedRate: averageRate(matched),
		Components:    make([]string, 0, len(matched)),
		Tasks:         make([]Task, 0, len(matched)),
		Source:        SourceHeuristic,
	}

	for _, name := range matched {
		label := componentFor(name)
		weeks := weeksFor(name)

		rec.Components = append(rec.Components, label)
		rec.Tasks = append(rec.Tasks, Task{
			Description:   label,
			Specialties:   []string{name},
			NumPeople:     1,
			EstimatedTime: weeks,
		})

		if weeks > rec.EstimatedTime {
			rec.EstimatedTime = weeks
		}
	}

	return rec
}

func matchSpecialties(text string) []string {
	matched := make([]string, 0)
	for _, s := range specialties {
		for _, kw := range s.keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, s.name)
				break
			}
		}
	}
	return matched
}

func teamSize(matched []string, words int) int {
	people := max(1, len(matched)) + words/wordsPerExtraHire

	for _, name := range matched {
		if name == AerospaceEngineer && people < aerospaceMinTeam {
			people = aerospaceMinTeam
		}
	}

	return people
}

func averageRate(matched []string) float64 {
	if len(matched) == 0 {
		return defaultRate
	}

	var total float64
	for _, name := range matched {
		rate := defaultRate
		if s, ok := specialtyIndex[name]; ok {
			rate = s.rate
		}
		total += rate
	}

	return math.Round(total/float64(len(matched))*100) / 100
}

func componentFor(name string) string {
	if s, ok := specialtyIndex[name]; ok {
		return s.component
	}
	return name + " tasks"
}

func weeksFor(name string) int {
	if s, ok := specialtyIndex[name]; ok {
		return s.weeks
	}
	return defaultWeeks
}
