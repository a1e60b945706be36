package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenNetwork(t *testing.T) {
	e1 := EVSE{ID: "DE*ABC*E1"}
	e2 := EVSE{ID: "DE*ABC*E2"}
	e3 := EVSE{ID: "DE*ABC*E3"}
	dup := EVSE{ID: "DE*ABC*E1", Description: "later copy"}

	n := Network{ID: "n", Operators: []Operator{
		{ID: "op1", Pools: []Pool{
			{ID: "p1", Stations: []Station{{ID: "s1", Points: []EVSE{e1, e2}}}},
		}},
		{ID: "op2", Pools: []Pool{
			{ID: "p2", Stations: []Station{{ID: "s2", Points: []EVSE{dup, e3}}}},
		}},
	}}

	got := Flatten(n)
	assert.Equal(t, []EVSE{e1, e2, e3}, got)
}

func TestFlattenSimpleScopes(t *testing.T) {
	e1 := EVSE{ID: "DE*ABC*E1"}
	assert.Equal(t, []EVSE{e1}, Flatten(Single(e1)))
	assert.Equal(t, []EVSE{e1}, Flatten(Collection{e1, e1}))
	assert.Nil(t, Flatten(nil))
	assert.Empty(t, Flatten(Collection{}))
}
