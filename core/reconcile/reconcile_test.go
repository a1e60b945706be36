package reconcile

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/remote"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func upd(id string, offset time.Duration, st model.StatusType) model.EVSEStatusUpdate {
	return model.EVSEStatusUpdate{
		EVSE: model.EVSE{ID: model.EVSEID(id)},
		New:  model.EVSEStatus{Type: st, Timestamp: base.Add(offset)},
	}
}

func TestLatestWinsRegardlessOfOrder(t *testing.T) {
	updates := []model.EVSEStatusUpdate{
		upd("DE*ABC*E1", 1*time.Second, model.StatusAvailable),
		upd("DE*ABC*E1", 5*time.Second, model.StatusCharging),
		upd("DE*ABC*E1", 3*time.Second, model.StatusReserved),
		upd("DE*ABC*E1", 2*time.Second, model.StatusBlocked),
	}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(updates), func(a, b int) { updates[a], updates[b] = updates[b], updates[a] })
		res := Latest(updates, remote.DefaultMapper{}, nil)
		require.Len(t, res.Statuses, 1)
		assert.Equal(t, "Charging", res.Statuses[0].Status)
		assert.Equal(t, base.Add(5*time.Second), res.Statuses[0].Timestamp)
	}
}

func TestTwoUpdatesKeepsT2(t *testing.T) {
	res := Latest([]model.EVSEStatusUpdate{
		upd("DE*ABC*EX", 0, model.StatusAvailable),
		upd("DE*ABC*EX", time.Minute, model.StatusCharging),
	}, remote.DefaultMapper{}, remote.IncludeAll)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, base.Add(time.Minute), res.Updates[0].New.Timestamp)
}

// Equal timestamps are resolved by input order: the first occurrence wins.
func TestEqualTimestampsFirstSeenWins(t *testing.T) {
	res := Latest([]model.EVSEStatusUpdate{
		upd("DE*ABC*E1", 0, model.StatusReserved),
		upd("DE*ABC*E1", 0, model.StatusCharging),
	}, remote.DefaultMapper{}, nil)
	require.Len(t, res.Statuses, 1)
	assert.Equal(t, "Reserved", res.Statuses[0].Status)
}

func TestMostRecentFirstAcrossEVSEs(t *testing.T) {
	res := Latest([]model.EVSEStatusUpdate{
		upd("DE*ABC*E1", 1*time.Second, model.StatusAvailable),
		upd("DE*ABC*E2", 9*time.Second, model.StatusAvailable),
		upd("DE*ABC*E3", 4*time.Second, model.StatusAvailable),
	}, remote.DefaultMapper{}, nil)
	ids := []remote.WireID{}
	for _, s := range res.Statuses {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []remote.WireID{"DE*ABC*E2", "DE*ABC*E3", "DE*ABC*E1"}, ids)
}

type failingMapper struct{ remote.DefaultMapper }

func (failingMapper) WireID(e model.EVSE) (remote.WireID, error) {
	if e.ID == "bad" {
		return "", errors.New("unmappable")
	}
	return remote.WireID(e.ID), nil
}

func TestMappingFailuresAreWarnings(t *testing.T) {
	res := Latest([]model.EVSEStatusUpdate{
		upd("bad", 0, model.StatusAvailable),
		upd("good", 0, model.StatusAvailable),
	}, failingMapper{}, nil)
	require.Len(t, res.Statuses, 1)
	assert.Equal(t, remote.WireID("good"), res.Statuses[0].ID)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "unmappable")
}

func TestInclusionPolicy(t *testing.T) {
	policy := remote.PolicyFuncs{
		EVSE: func(e model.EVSE) bool { return e.ID != "DE*ABC*E1" },
		ID:   func(id remote.WireID) bool { return id != "DE*ABC*E2" },
	}
	res := Latest([]model.EVSEStatusUpdate{
		upd("DE*ABC*E1", 0, model.StatusAvailable),
		upd("DE*ABC*E2", 0, model.StatusAvailable),
		upd("DE*ABC*E3", 0, model.StatusAvailable),
	}, remote.DefaultMapper{}, policy)
	require.Len(t, res.Statuses, 1)
	assert.Equal(t, remote.WireID("DE*ABC*E3"), res.Statuses[0].ID)
	assert.Equal(t, 2, res.Excluded)
	assert.Empty(t, res.Warnings)
}

func TestEmptyInput(t *testing.T) {
	res := Latest(nil, remote.DefaultMapper{}, nil)
	assert.Empty(t, res.Statuses)
	assert.Empty(t, res.Warnings)
}
