package deck

import (
	"fmt"
)

// MaxCopies is the summed per-card limit across the main and side zones.
const MaxCopies = 3

// Checks holds the named boolean results of the eight construction checks.
type Checks struct {
	HasLegend             bool `json:"hasLegend"`
	HasChampion           bool `json:"hasChampion"`
	ChampionMatchesLegend bool `json:"championMatchesLegend"`
	RunesComplete         bool `json:"runesComplete"`
	RunesDomainMatch      bool `json:"runesDomainMatch"`
	BattlefieldsComplete  bool `json:"battlefieldsComplete"`
	MainBoardComplete     bool `json:"mainBoardComplete"`
	CardLimitsValid       bool `json:"cardLimitsValid"`
}

// ValidationResult is the derived report of which construction rules a deck
// currently satisfies. Never persisted; recomputed on demand.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	Checks Checks   `json:"checks"`
}

// Validate runs every construction check against a deck snapshot and the
// resolved catalog cards for the ids the deck references. All checks are
// computed independently so the caller always sees the full list of
// outstanding problems. The function is pure: it performs no I/O, never
// mutates its inputs, and yields identical results for identical inputs.
func Validate(d *Deck, cards map[string]Card) ValidationResult {
	result := ValidationResult{Errors: []string{}}
	checks := &result.Checks

	// Legend resolution and champion-affinity tag derivation.
	var legend Card
	var legendDomains []string
	championTag := ""
	championTagFound := false
	if d.LegendCardID != "" {
		if c, ok := cards[d.LegendCardID]; ok {
			legend = c
			checks.HasLegend = true
			legendDomains = legend.Domains
			championTag, championTagFound = legend.ChampionTag()
		}
	}
	if !checks.HasLegend {
		result.Errors = append(result.Errors, "No legend selected")
	}

	// Champion resolution. A card of the wrong category referenced by the
	// champion slot does not count as a champion.
	var champion Card
	championResolved := false
	if d.ChampionCardID != "" {
		if c, ok := cards[d.ChampionCardID]; ok {
			champion = c
			championResolved = true
			checks.HasChampion = c.Category == CategoryChampion
		}
	}
	if !checks.HasChampion {
		result.Errors = append(result.Errors, "No champion selected")
	}

	checks.ChampionMatchesLegend = championTagFound && championResolved && champion.HasTag(championTag)
	if !checks.ChampionMatchesLegend {
		tag := championTag
		if !championTagFound {
			tag = "unknown"
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("Champion does not match the legend's champion tag %q", tag))
	}

	runeCount := d.ZoneQuantity(ZoneRune)
	runeSpec := zoneRegistry[ZoneRune]
	checks.RunesComplete = runeCount == runeSpec.Target
	if !checks.RunesComplete {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Rune zone has %d of %d required runes", runeCount, runeSpec.Target))
	}

	// Domain matching is only exercised when the legend has domains. A rune
	// entry fails when its card has no domains or none overlap the legend's.
	checks.RunesDomainMatch = true
	if len(legendDomains) > 0 {
		mismatched := 0
		for _, e := range d.ZoneEntries(ZoneRune) {
			card, ok := cards[e.CardID]
			if !ok || !card.SharesDomain(legendDomains) {
				mismatched++
			}
		}
		checks.RunesDomainMatch = mismatched == 0
		if !checks.RunesDomainMatch {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%d rune cards do not share a domain with the legend", mismatched))
		}
	}

	battlefieldCount := d.ZoneQuantity(ZoneBattlefield)
	battlefieldSpec := zoneRegistry[ZoneBattlefield]
	checks.BattlefieldsComplete = battlefieldCount == battlefieldSpec.Target
	if !checks.BattlefieldsComplete {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Battlefield zone has %d of %d required battlefields", battlefieldCount, battlefieldSpec.Target))
	}

	mainCount := d.ZoneQuantity(ZoneMain)
	mainSpec := zoneRegistry[ZoneMain]
	checks.MainBoardComplete = mainCount == mainSpec.Target
	if !checks.MainBoardComplete {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Main deck has %d of %d required cards", mainCount, mainSpec.Target))
	}

	// Per-card copy limit across main+side. One error line per offending
	// card, in first-appearance order so results stay deterministic.
	checks.CardLimitsValid = true
	counted := make(map[string]int)
	var order []string
	for _, e := range d.Entries {
		if e.Zone != ZoneMain && e.Zone != ZoneSide {
			continue
		}
		if _, seen := counted[e.CardID]; !seen {
			order = append(order, e.CardID)
		}
		counted[e.CardID] += e.Quantity
	}
	for _, cardID := range order {
		total := counted[cardID]
		if total <= MaxCopies {
			continue
		}
		checks.CardLimitsValid = false
		name := cardID
		if card, ok := cards[cardID]; ok && card.Name != "" {
			name = card.Name
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("Too many copies of %s (%d/%d)", name, total, MaxCopies))
	}

	result.Valid = checks.HasLegend &&
		checks.HasChampion &&
		checks.ChampionMatchesLegend &&
		checks.RunesComplete &&
		checks.RunesDomainMatch &&
		checks.BattlefieldsComplete &&
		checks.MainBoardComplete &&
		checks.CardLimitsValid
	return result
}
