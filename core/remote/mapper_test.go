package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsync/core/model"
)

func TestDefaultMapperWireID(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		id     model.EVSEID
		want   WireID
		err    bool
	}{
		{name: "full id", id: "DE*ABC*E1234", want: "DE*ABC*E1234"},
		{name: "lowercase", id: "de*abc*e99", want: "DE*ABC*E99"},
		{name: "prefixed", prefix: "DE*ABC", id: "1234", want: "DE*ABC*E1234"},
		{name: "prefixed keeps E", prefix: "DE*ABC*", id: "E77", want: "DE*ABC*E77"},
		{name: "empty", id: "", err: true},
		{name: "garbage", id: "not an id", err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := DefaultMapper{OperatorPrefix: tc.prefix}
			got, err := m.WireID(model.EVSE{ID: tc.id})
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultMapperWireItem(t *testing.T) {
	e := model.EVSE{
		ID:         "DE*ABC*E1",
		StationID:  "st-1",
		OperatorID: "DE*ABC",
		MaxPowerKW: 22,
		Connectors: []model.Connector{{Type: model.ConnectorType2, MaxPowerKW: 22}},
	}
	item, err := DefaultMapper{}.WireItem(e)
	require.NoError(t, err)
	assert.Equal(t, WireID("DE*ABC*E1"), item.ID)
	assert.Equal(t, "st-1", item.StationID)
	assert.Len(t, item.Connectors, 1)

	e.MaxPowerKW = -1
	_, err = DefaultMapper{}.WireItem(e)
	assert.Error(t, err)
}

func TestPolicyFuncs(t *testing.T) {
	assert.True(t, IncludeAll.Include(model.EVSE{}))
	assert.True(t, IncludeAll.IncludeID("x"))
	p := PolicyFuncs{ID: func(id WireID) bool { return id != "DE*ABC*E2" }}
	assert.True(t, p.IncludeID("DE*ABC*E1"))
	assert.False(t, p.IncludeID("DE*ABC*E2"))
}
