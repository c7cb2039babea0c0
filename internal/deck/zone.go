package deck

// Zone identifies one of the six fixed deck sections.
type Zone string

const (
	ZoneLegend      Zone = "legend"
	ZoneChampion    Zone = "champion"
	ZoneBattlefield Zone = "battlefield"
	ZoneRune        Zone = "rune"
	ZoneMain        Zone = "main"
	ZoneSide        Zone = "side"
)

// CapacityPolicy distinguishes zones that must hit their target count
// exactly from zones that only have an upper bound.
type CapacityPolicy int

const (
	// CapacityExact zones must hold exactly Target cards in a valid deck.
	CapacityExact CapacityPolicy = iota
	// CapacityAtMost zones may hold up to Target cards.
	CapacityAtMost
)

// ZoneSpec describes a zone's capacity policy and which card categories
// may occupy it.
type ZoneSpec struct {
	Zone        Zone
	DisplayName string
	Target      int
	Policy      CapacityPolicy
	Categories  []CardCategory
}

// Allows reports whether cards of the given category may enter the zone.
func (s ZoneSpec) Allows(category CardCategory) bool {
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// The construction rules table. Counts are fixed by the game's published
// deck construction rules and must not drift.
var zoneRegistry = map[Zone]ZoneSpec{
	ZoneLegend: {
		Zone:        ZoneLegend,
		DisplayName: "Legend",
		Target:      1,
		Policy:      CapacityExact,
		Categories:  []CardCategory{CategoryLegend},
	},
	ZoneChampion: {
		Zone:        ZoneChampion,
		DisplayName: "Champion",
		Target:      1,
		Policy:      CapacityExact,
		Categories:  []CardCategory{CategoryChampion},
	},
	ZoneBattlefield: {
		Zone:        ZoneBattlefield,
		DisplayName: "Battlefields",
		Target:      3,
		Policy:      CapacityExact,
		Categories:  []CardCategory{CategoryBattlefield},
	},
	ZoneRune: {
		Zone:        ZoneRune,
		DisplayName: "Runes",
		Target:      12,
		Policy:      CapacityExact,
		Categories:  []CardCategory{CategoryRune},
	},
	ZoneMain: {
		Zone:        ZoneMain,
		DisplayName: "Main Deck",
		Target:      39,
		Policy:      CapacityExact,
		Categories:  []CardCategory{CategoryChampion, CategoryUnit, CategorySpell, CategoryGear},
	},
	ZoneSide: {
		Zone:        ZoneSide,
		DisplayName: "Side Deck",
		Target:      8,
		Policy:      CapacityAtMost,
		Categories:  []CardCategory{CategoryChampion, CategoryUnit, CategorySpell, CategoryGear},
	},
}

// zoneOrder fixes iteration order for anything that walks all zones.
var zoneOrder = []Zone{ZoneLegend, ZoneChampion, ZoneBattlefield, ZoneRune, ZoneMain, ZoneSide}

// SpecFor looks up the registry entry for a zone. The second return is
// false for an unknown zone, which indicates a programming error rather
// than a user-facing condition.
func SpecFor(z Zone) (ZoneSpec, bool) {
	spec, ok := zoneRegistry[z]
	return spec, ok
}

// Zones returns the six zone kinds in display order.
func Zones() []Zone {
	out := make([]Zone, len(zoneOrder))
	copy(out, zoneOrder)
	return out
}

// singleCardZone reports whether the zone holds exactly one card.
func singleCardZone(z Zone) bool {
	return z == ZoneLegend || z == ZoneChampion
}
