// Package reconcile reduces a batch of raw status updates to one effective
// status per EVSE before it is uploaded.
//
// Updates are ordered by their new status timestamp, most recent first, and
// folded by wire identity so that only the latest update of each EVSE
// survives. The sort is stable: when two updates of the same EVSE carry the
// same timestamp, the one that appears first in the input wins.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/remote"
)

// Result is the outcome of a reconciliation.
type Result struct {
	// Statuses holds one wire status per EVSE, most recent first.
	Statuses []remote.WireStatus
	// Updates holds the update each status was built from, index aligned
	// with Statuses.
	Updates []model.EVSEStatusUpdate
	// Warnings lists the updates skipped because their identity could not
	// be mapped.
	Warnings []string
	// Excluded counts updates dropped by the inclusion policy.
	Excluded int
}

// Latest reconciles updates. A nil policy includes every EVSE. Mapping
// failures are reported as warnings and never abort the batch.
func Latest(updates []model.EVSEStatusUpdate, mapper remote.EntityMapper, policy remote.InclusionPolicy) Result {
	var res Result
	if len(updates) == 0 {
		return res
	}
	if policy == nil {
		policy = remote.IncludeAll
	}
	sorted := append([]model.EVSEStatusUpdate(nil), updates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].New.Timestamp.After(sorted[j].New.Timestamp)
	})

	seen := make(map[remote.WireID]struct{}, len(sorted))
	for _, u := range sorted {
		if !policy.Include(u.EVSE) {
			res.Excluded++
			continue
		}
		id, err := mapper.WireID(u.EVSE)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("status of %s skipped: %v", u.ID(), err))
			continue
		}
		if !policy.IncludeID(id) {
			res.Excluded++
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res.Statuses = append(res.Statuses, remote.WireStatus{
			ID:        id,
			Status:    u.New.Type.String(),
			Timestamp: u.New.Timestamp,
		})
		res.Updates = append(res.Updates, u)
	}
	return res
}
