package services

import (
	"sort"
	"strings"
	"time"

	"toyama-events-pipeline/internal/models"
)

// Deduplicator merges event records that describe the same real-world event.
// Matching combines exact canonical-title equality, containment, and fuzzy
// similarity over titles and venues, with clustering via union-find so that
// chained matches collapse into one group.
type Deduplicator struct {
	// FuzzyThreshold is the combined similarity at or above which two
	// events merge unconditionally.
	FuzzyThreshold float64
	// GreyZoneLow is the lower bound of the ambiguous band. Scores in
	// [GreyZoneLow, FuzzyThreshold) merge only when the venues agree or
	// one venue is unknown.
	GreyZoneLow float64
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{FuzzyThreshold: 0.85, GreyZoneLow: 0.70}
}

// Deduplicate merges duplicates and returns the surviving events together
// with the clusters that describe what was merged. Output order follows the
// representative's scrape order, so repeated runs over the same input
// produce identical results.
func (d *Deduplicator) Deduplicate(events []models.Event) ([]models.Event, []models.DuplicateCluster) {
	if len(events) <= 1 {
		return events, nil
	}

	uf := newUnionFind(len(events))
	pairScores := map[[2]int]float64{}

	for _, pair := range d.candidatePairs(events) {
		i, j := pair[0], pair[1]
		score, merge := d.scorePair(&events[i], &events[j])
		if merge {
			uf.union(i, j)
			pairScores[[2]int{i, j}] = score
		}
	}

	// Group indexes by root.
	groups := map[int][]int{}
	for i := range events {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var merged []models.Event
	var clusters []models.DuplicateCluster
	for _, members := range groups {
		sort.Ints(members)
		if len(members) == 1 {
			merged = append(merged, events[members[0]])
			continue
		}
		rep := d.mergeGroup(events, members)
		merged = append(merged, rep)
		clusters = append(clusters, buildCluster(events, members, rep.ID, pairScores))
	}

	sort.Slice(merged, func(a, b int) bool {
		return merged[a].ScrapeOrder < merged[b].ScrapeOrder
	})
	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a].RepresentativeID < clusters[b].RepresentativeID
	})
	return merged, clusters
}

// candidatePairs indexes events by the days they cover and yields only
// pairs that share at least one day (or have no dates at all), keeping the
// comparison count far below all-pairs on large batches.
func (d *Deduplicator) candidatePairs(events []models.Event) [][2]int {
	byDay := map[time.Time][]int{}
	var dateless []int
	for i, ev := range events {
		if len(ev.Dates) == 0 {
			dateless = append(dateless, i)
			continue
		}
		seen := map[time.Time]bool{}
		for _, dr := range ev.Dates {
			for day := models.DayOf(dr.Start); !day.After(models.DayOf(dr.End)); day = day.AddDate(0, 0, 1) {
				if !seen[day] {
					seen[day] = true
					byDay[day] = append(byDay[day], i)
				}
			}
		}
	}

	seenPair := map[[2]int]bool{}
	var pairs [][2]int
	addPairs := func(idxs []int) {
		for a := 0; a < len(idxs); a++ {
			for b := a + 1; b < len(idxs); b++ {
				key := [2]int{idxs[a], idxs[b]}
				if key[0] > key[1] {
					key[0], key[1] = key[1], key[0]
				}
				if !seenPair[key] {
					seenPair[key] = true
					pairs = append(pairs, key)
				}
			}
		}
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(a, b int) bool { return days[a].Before(days[b]) })
	for _, day := range days {
		addPairs(byDay[day])
	}
	// Dateless events can only match each other.
	addPairs(dateless)

	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}

// scorePair computes the similarity between two events and decides whether
// they merge.
func (d *Deduplicator) scorePair(a, b *models.Event) (float64, bool) {
	// Exact canonical title match.
	if a.CanonicalTitle != "" && a.CanonicalTitle == b.CanonicalTitle {
		return 1.0, true
	}

	// Containment: one canonical title contains the other and both start
	// on the same day. The shorter title must carry real content.
	if sameDayStart(a, b) && titleContains(a.CanonicalTitle, b.CanonicalTitle) {
		return 0.9, true
	}

	score := d.fuzzyScore(a, b)
	if score >= d.FuzzyThreshold {
		return score, true
	}
	if score >= d.GreyZoneLow {
		// Ambiguous band: require venue agreement.
		if a.CanonicalVenue == b.CanonicalVenue || a.CanonicalVenue == "" || b.CanonicalVenue == "" {
			return score, true
		}
	}
	return score, false
}

// fuzzyScore weights title similarity at 0.7 and venue similarity at 0.3
// when both venues are known, otherwise title similarity alone decides.
func (d *Deduplicator) fuzzyScore(a, b *models.Event) float64 {
	// Cheap character-overlap gate before the edit-distance computation.
	if models.CharOverlapRatio(a.CanonicalTitle, b.CanonicalTitle) < 0.3 {
		return 0
	}
	titleSim := models.LevenshteinRatio(a.CanonicalTitle, b.CanonicalTitle)
	if a.CanonicalVenue == "" || b.CanonicalVenue == "" {
		return titleSim
	}
	venueSim := models.LevenshteinRatio(a.CanonicalVenue, b.CanonicalVenue)
	return 0.7*titleSim + 0.3*venueSim
}

func sameDayStart(a, b *models.Event) bool {
	da, db := a.PrimaryDate(), b.PrimaryDate()
	if da.IsZero() || db.IsZero() {
		return false
	}
	return models.DayOf(da).Equal(models.DayOf(db))
}

// titleContains reports whether one canonical title contains the other,
// with the shorter side longer than three runes so that tiny fragments do
// not swallow full titles.
func titleContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	shorter, longer := a, b
	if len([]rune(shorter)) > len([]rune(longer)) {
		shorter, longer = longer, shorter
	}
	if len([]rune(shorter)) <= 3 {
		return false
	}
	return strings.Contains(longer, shorter)
}

// mergeGroup collapses a cluster into its representative: the member with
// the highest quality score, ties broken by earliest scrape order. Unknown
// fields on the representative are backfilled from the other members in
// scrape order.
func (d *Deduplicator) mergeGroup(events []models.Event, members []int) models.Event {
	best := members[0]
	for _, idx := range members[1:] {
		if events[idx].QualityScore > events[best].QualityScore ||
			(events[idx].QualityScore == events[best].QualityScore &&
				events[idx].ScrapeOrder < events[best].ScrapeOrder) {
			best = idx
		}
	}

	rep := events[best]
	for _, idx := range members {
		if idx == best {
			continue
		}
		rep = backfill(rep, events[idx])
	}
	rep.ID = models.GenerateEventID(rep.CanonicalTitle, rep.PrimaryDate())
	return rep
}

// backfill copies fields the representative lacks from a merged member and
// unions sources and date ranges.
func backfill(rep, other models.Event) models.Event {
	if rep.Venue == "" && other.Venue != "" {
		rep.Venue = other.Venue
		rep.CanonicalVenue = other.CanonicalVenue
	}
	if rep.Category == models.CategoryOther && other.Category != models.CategoryOther {
		rep.Category = other.Category
	}
	if rep.Description == "" && other.Description != "" {
		rep.Description = other.Description
	}
	if rep.Price.Kind == models.PriceUnknown && other.Price.Kind != models.PriceUnknown {
		rep.Price = other.Price
	}
	if rep.Contact.Empty() && !other.Contact.Empty() {
		rep.Contact = other.Contact
	}

	for _, src := range other.Sources {
		if !hasSource(rep.Sources, src) {
			rep.Sources = append(rep.Sources, src)
		}
	}
	for _, dr := range other.Dates {
		if !hasStartDay(rep.Dates, dr.Start) {
			rep.Dates = append(rep.Dates, dr)
		}
	}
	sort.Slice(rep.Dates, func(a, b int) bool {
		return rep.Dates[a].Start.Before(rep.Dates[b].Start)
	})
	return rep
}

func hasSource(sources []models.SourceRef, src models.SourceRef) bool {
	for _, s := range sources {
		if s.Site == src.Site && s.URL == src.URL {
			return true
		}
	}
	return false
}

func hasStartDay(ranges []models.DateRange, start time.Time) bool {
	for _, dr := range ranges {
		if models.DayOf(dr.Start).Equal(models.DayOf(start)) {
			return true
		}
	}
	return false
}

func buildCluster(events []models.Event, members []int, repID string, scores map[[2]int]float64) models.DuplicateCluster {
	cluster := models.DuplicateCluster{RepresentativeID: repID, MinPairScore: 1.0}
	for _, idx := range members {
		cluster.EventIDs = append(cluster.EventIDs, events[idx].ID)
	}
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			key := [2]int{members[a], members[b]}
			score, ok := scores[key]
			if !ok {
				continue
			}
			cluster.PairScores = append(cluster.PairScores, models.PairScore{
				EventID1: events[members[a]].ID,
				EventID2: events[members[b]].ID,
				Score:    score,
			})
			if score < cluster.MinPairScore {
				cluster.MinPairScore = score
			}
		}
	}
	return cluster
}

// unionFind is a plain disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		if ra > rb {
			ra, rb = rb, ra
		}
		u.parent[rb] = ra
	}
}
