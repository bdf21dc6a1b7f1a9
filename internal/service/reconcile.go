package service

import (
	"sort"

	"github.com/bertybuttface/sponsorblock-mirror/internal/model"
)

// Overlap thresholds applied to overlap/span for two same-category
// segments that do not strictly contain one another.
const (
	ChapterOverlapThreshold    = 0.8
	SameActionOverlapThreshold = 0.6
	// CrossActionOverlapThreshold applies when the action types differ. It is
	// far more permissive than the same-action value and matches upstream.
	CrossActionOverlapThreshold = 0.1
)

// videoGroup holds one hashed video's rows in retrieval order, plus the
// same rows bucketed by category. Rows of different categories never
// overlap, so clustering only ever scans a single bucket.
type videoGroup struct {
	hash     string
	videoID  string
	rows     []model.SponsorTime
	byCat    map[string][]model.SponsorTime
	accepted map[string][]model.Segment
	seen     map[string]struct{} // accepted UUIDs
}

// Reconcile clusters overlapping annotations per video and category, keeps
// the highest-voted member of every cluster and returns one Sponsor per
// video that retained at least one segment. Sponsors come back in the order
// their videos first appear in records; each Sponsor's segments are sorted
// ascending by start offset.
func Reconcile(records []model.SponsorTime) []model.Sponsor {
	groups, order := groupRecords(records)

	sponsors := make([]model.Sponsor, 0, len(order))
	for _, hash := range order {
		g := groups[hash]
		segments := g.reconcile()
		if len(segments) == 0 {
			continue
		}
		sponsors = append(sponsors, model.Sponsor{
			Hash:     g.hash,
			VideoID:  g.videoID,
			Segments: segments,
		})
	}
	return sponsors
}

// groupRecords is the single indexing pass: hashed video ID -> category ->
// rows, each level preserving retrieval order.
func groupRecords(records []model.SponsorTime) (map[string]*videoGroup, []string) {
	groups := make(map[string]*videoGroup)
	var order []string

	for _, r := range records {
		g, ok := groups[r.HashedVideoID]
		if !ok {
			g = &videoGroup{
				hash:     r.HashedVideoID,
				videoID:  r.VideoID,
				byCat:    make(map[string][]model.SponsorTime),
				accepted: make(map[string][]model.Segment),
				seen:     make(map[string]struct{}),
			}
			groups[r.HashedVideoID] = g
			order = append(order, r.HashedVideoID)
		}
		g.rows = append(g.rows, r)
		g.byCat[r.Category] = append(g.byCat[r.Category], r)
	}
	return groups, order
}

func (g *videoGroup) reconcile() []model.Segment {
	var out []model.Segment

	// Acceptance follows retrieval order so that the stable sort below
	// breaks start-offset ties by it.
	for _, r := range g.rows {
		candidate := model.NewSegment(r)
		if g.coveredByAccepted(candidate) {
			continue
		}

		best := bestSegment(cluster(candidate, g.byCat[r.Category]))
		if _, dup := g.seen[best.UUID]; dup {
			continue
		}
		g.seen[best.UUID] = struct{}{}
		g.accepted[r.Category] = append(g.accepted[r.Category], best)
		out = append(out, best)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start() < out[j].Start()
	})
	return out
}

func (g *videoGroup) coveredByAccepted(candidate model.Segment) bool {
	for _, s := range g.accepted[candidate.Category] {
		if Overlaps(candidate, s) {
			return true
		}
	}
	return false
}

// cluster returns every row of the bucket overlapping candidate, in
// retrieval order, followed by candidate itself.
func cluster(candidate model.Segment, bucket []model.SponsorTime) []model.Segment {
	members := make([]model.Segment, 0, 4)
	for _, r := range bucket {
		if r.UUID == candidate.UUID {
			continue
		}
		other := model.NewSegment(r)
		if Overlaps(candidate, other) {
			members = append(members, other)
		}
	}
	return append(members, candidate)
}

// bestSegment picks the member with the most votes. Ties keep the earliest.
func bestSegment(members []model.Segment) model.Segment {
	best := members[0]
	for _, s := range members[1:] {
		if s.Votes > best.Votes {
			best = s
		}
	}
	return best
}

// Overlaps reports whether a and b describe the same moment of a video.
// Segments of different categories never overlap. Strict containment in
// either direction always overlaps; otherwise the shared fraction of the
// combined span must exceed a category and action-type dependent threshold.
func Overlaps(a, b model.Segment) bool {
	if a.Category != b.Category {
		return false
	}
	if strictlyContains(a, b) || strictlyContains(b, a) {
		return true
	}

	overlap := min(a.End(), b.End()) - max(a.Start(), b.Start())
	span := max(a.End(), b.End()) - min(a.Start(), b.Start())
	if span <= 0 {
		// Zero-length points (poi_highlight) never cluster.
		return false
	}
	return overlap/span > overlapThreshold(a, b)
}

// strictlyContains reports whether inner lies strictly inside outer.
func strictlyContains(outer, inner model.Segment) bool {
	return inner.Start() > outer.Start() && inner.End() < outer.End()
}

func overlapThreshold(a, b model.Segment) float64 {
	switch {
	case a.Category == "chapter":
		return ChapterOverlapThreshold
	case a.ActionType == b.ActionType:
		return SameActionOverlapThreshold
	default:
		return CrossActionOverlapThreshold
	}
}
