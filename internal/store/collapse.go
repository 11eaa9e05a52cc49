package store

import (
	"sort"

	"github.com/standuphq/standup-engine/internal/model"
)

// CollapseByDay reduces raw rows to at most one record per calendar day,
// keeping the most recently generated row of each day, ordered by GeneratedAt
// descending. Implementations use it when the backing store may contain
// legacy duplicates; callers never see more than one record per day.
func CollapseByDay(recs []*model.StandupRecord) []*model.StandupRecord {
	best := make(map[model.Day]*model.StandupRecord, len(recs))
	for _, r := range recs {
		cur, ok := best[r.Date]
		if !ok || r.GeneratedAt.After(cur.GeneratedAt) {
			best[r.Date] = r
		}
	}
	out := make([]*model.StandupRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].Date > out[j].Date
	})
	return out
}

// Page applies limit/offset pagination to an already-ordered slice.
func Page(recs []*model.StandupRecord, limit, offset int) []*model.StandupRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return nil
	}
	recs = recs[offset:]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}
