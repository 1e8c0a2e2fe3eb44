package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountsAdd(t *testing.T) {
	var total Counts
	total.Add(Counts{Visits: 2, ChlorineTotal: 5, BacteriologicalPending: 1})
	total.Add(Counts{Visits: 1, ChlorineTotal: 3, BacteriologicalPositive: 2})

	assert.Equal(t, 3, total.Visits)
	assert.Equal(t, 8, total.ChlorineTotal)
	assert.Equal(t, 1, total.BacteriologicalPending)
	assert.Equal(t, 2, total.BacteriologicalPositive)
}

func TestCountsAddZeroIdentity(t *testing.T) {
	c := Counts{Visits: 4, PHSatisfactory: 7, TemperatureNonSatisfactory: 1}
	before := c
	c.Add(Counts{})
	assert.Equal(t, before, c)
}

func TestCountsNonNegative(t *testing.T) {
	assert.True(t, Counts{}.NonNegative())
	assert.True(t, Counts{Visits: 3, TurbiditySatisfactory: 1}.NonNegative())
	assert.False(t, Counts{ChlorineNegative: -1}.NonNegative())
	assert.False(t, Counts{TemperatureNonSatisfactory: -5}.NonNegative())
}

func TestBacteriologicalComplete(t *testing.T) {
	assert.False(t, Counts{}.BacteriologicalComplete())
	assert.False(t, Counts{BacteriologicalPositive: 2, BacteriologicalPending: 1}.BacteriologicalComplete())
	assert.True(t, Counts{BacteriologicalNegative: 3}.BacteriologicalComplete())
}

func TestTaskTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskPending, TaskAccepted, true},
		{TaskPending, TaskRejected, true},
		{TaskAccepted, TaskInProgress, true},
		{TaskInProgress, TaskCompleted, true},

		{TaskPending, TaskInProgress, false},
		{TaskPending, TaskCompleted, false},
		{TaskAccepted, TaskCompleted, false},
		{TaskAccepted, TaskRejected, false},
		{TaskCompleted, TaskPending, false},
		{TaskRejected, TaskAccepted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTaskTerminal(t *testing.T) {
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskRejected.Terminal())
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskAccepted.Terminal())
	assert.False(t, TaskInProgress.Terminal())
}
