package litmus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTest() *Test {
	return &Test{
		Name: "valid",
		Vars: []VarDecl{
			{Name: "x", Discipline: DisciplinePlain},
			{Name: "l", Discipline: DisciplineLocked},
			{Name: "vals", Discipline: DisciplinePlain, Len: 16, Randomize: true},
		},
		Workers: []WorkerSpec{
			{Name: "a", Registers: 2, Ops: []Op{
				Bind(0, 1),
				Read("x", 1),
				Lock("l"), Add("l", 1), Unlock("l"),
				ScanRead("vals", 8, 4, 0),
			}},
			{Name: "b", Ops: []Op{
				Write("x", 5),
				ScanWrite("vals", 8),
			}},
		},
		Outcomes: OutcomeSet{Allowed: []Outcome{{0, 0}, {0, 5}}},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validTest().Validate())
}

func TestValidate_Defects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Test)
		wantErr string
	}{
		{"unknown variable", func(tt *Test) {
			tt.Workers[1].Ops[0] = Write("nope", 1)
		}, "unknown variable"},
		{"duplicate variable", func(tt *Test) {
			tt.Vars = append(tt.Vars, VarDecl{Name: "x"})
		}, "duplicate variable"},
		{"register out of range", func(tt *Test) {
			tt.Workers[0].Ops[1] = Read("x", 5)
		}, "out of range"},
		{"lock on unprotected var", func(tt *Test) {
			tt.Workers[0].Ops[2] = Lock("x")
		}, "not lock-protected"},
		{"scan on scalar", func(tt *Test) {
			tt.Workers[1].Ops[1] = ScanWrite("x", 8)
		}, "want array"},
		{"read on array", func(tt *Test) {
			tt.Workers[0].Ops[1] = Read("vals", 1)
		}, "want scalar"},
		{"scan longer than array", func(tt *Test) {
			tt.Workers[1].Ops[1] = ScanWrite("vals", 17)
		}, "length"},
		{"outcome arity mismatch", func(tt *Test) {
			tt.Outcomes.Allowed = []Outcome{{0}}
		}, "values"},
		{"no workers", func(tt *Test) {
			tt.Workers = nil
		}, "no workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tt := validTest()
			tc.mutate(tt)
			err := tt.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRegisterCount(t *testing.T) {
	assert.Equal(t, 2, validTest().RegisterCount())
}

func TestVarIndex(t *testing.T) {
	tt := validTest()
	assert.Equal(t, 0, tt.VarIndex("x"))
	assert.Equal(t, 2, tt.VarIndex("vals"))
	assert.Equal(t, -1, tt.VarIndex("missing"))
}

func TestDiscipline_Strings(t *testing.T) {
	assert.Equal(t, "plain", DisciplinePlain.String())
	assert.Equal(t, "atomic-seq-cst", DisciplineSeqCst.String())
	assert.Equal(t, "lock-protected", DisciplineLocked.String())
	assert.True(t, DisciplineRelaxed.Atomic())
	assert.False(t, DisciplineLocked.Atomic())
}
