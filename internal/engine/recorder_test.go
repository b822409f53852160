package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
)

func oracleTest() *litmus.Test {
	return &litmus.Test{
		Name:    "oracle",
		Vars:    []litmus.VarDecl{{Name: "x", Discipline: litmus.DisciplinePlain}},
		Workers: []litmus.WorkerSpec{{Name: "w", Registers: 2}},
		Outcomes: litmus.OutcomeSet{
			Allowed:   []litmus.Outcome{{0, 0}, {1, 1}},
			Forbidden: []litmus.Outcome{{1, 0}},
		},
	}
}

func TestRecorder_HistogramAndCounts(t *testing.T) {
	r := newRecorder(oracleTest(), 4)

	assert.Equal(t, litmus.Allowed, r.record(litmus.Outcome{0, 0}))
	assert.Equal(t, litmus.Allowed, r.record(litmus.Outcome{0, 0}))
	assert.Equal(t, litmus.Forbidden, r.record(litmus.Outcome{1, 0}))
	assert.Equal(t, litmus.Unexpected, r.record(litmus.Outcome{7, 7}))

	assert.Equal(t, map[string]uint64{"0,0": 2, "1,0": 1, "7,7": 1}, r.histogram())
	assert.Equal(t, uint64(1), r.forbidden)
	assert.Equal(t, uint64(1), r.unexpected)
}

func TestRecorder_EvidenceCap(t *testing.T) {
	r := newRecorder(oracleTest(), 2)
	for i := 0; i < 5; i++ {
		r.retain(litmus.Evidence{Trial: i})
	}
	require.Len(t, r.evidence, 2)
	assert.Equal(t, 0, r.evidence[0].Trial)
	assert.Equal(t, 1, r.evidence[1].Trial)
}

func TestRecorder_HistogramIsACopy(t *testing.T) {
	r := newRecorder(oracleTest(), 1)
	r.record(litmus.Outcome{0, 0})
	h := r.histogram()
	h["0,0"] = 99
	assert.Equal(t, uint64(1), r.histogram()["0,0"])
}
