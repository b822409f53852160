package litmus

import "fmt"

// OpKind discriminates the Op variants.
type OpKind int

const (
	// OpBind sets register Dst to the literal Value.
	OpBind OpKind = iota

	// OpRead loads the scalar Var into register Dst.
	OpRead

	// OpWrite stores Value (or register Src when FromReg) to the scalar Var.
	OpWrite

	// OpAdd is a read-modify-write: Var += Value, routed by discipline.
	// Plain disciplines perform a genuinely non-atomic load-add-store.
	OpAdd

	// OpLock acquires the mutex of the lock-protected scalar Var. The lock
	// is held until a matching OpUnlock; accesses in between go straight
	// to memory without re-acquiring.
	OpLock

	// OpUnlock releases the mutex acquired by OpLock.
	OpUnlock

	// OpJitter spins a pseudo-random number of iterations, bounded by
	// Iters, folding the spin counter into the worker's sink slot so the
	// loop is observably used and cannot be optimized away.
	OpJitter

	// OpScanWrite performs Iters writes of pseudo-random values to
	// pseudo-randomly chosen, never-repeating indices of the array Var.
	OpScanWrite

	// OpScanRead performs Iters reads from pseudo-randomly chosen,
	// never-repeating indices of the array Var, folding values into the
	// worker's sink slot. Every CheckEvery iterations the whole array is
	// compared against the last scan snapshot; an element observed to
	// change more than once within one window counts as a coherence
	// anomaly. The final anomaly count is recorded into register Dst.
	OpScanRead
)

func (k OpKind) String() string {
	switch k {
	case OpBind:
		return "bind"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpAdd:
		return "add"
	case OpLock:
		return "lock"
	case OpUnlock:
		return "unlock"
	case OpJitter:
		return "jitter"
	case OpScanWrite:
		return "scan-write"
	case OpScanRead:
		return "scan-read"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one typed operation in a worker program. Use the constructor
// functions rather than filling the struct directly.
type Op struct {
	Kind OpKind

	// Var names the shared variable the op targets, where applicable.
	Var string

	// Dst is the destination register for OpBind, OpRead and OpScanRead.
	Dst int

	// Src is the source register for OpWrite when FromReg is set.
	Src     int
	FromReg bool

	// Value is the literal for OpBind and OpWrite, or the delta for OpAdd.
	Value int64

	// Iters is the iteration count for scan ops and the spin bound for
	// OpJitter.
	Iters int

	// CheckEvery overrides the configured coherence-check cadence for
	// OpScanRead. Zero means use the harness config value.
	CheckEvery int

	// Repeat executes the op that many times. Zero means once.
	Repeat int
}

// Bind sets register dst to a literal.
func Bind(dst int, value int64) Op { return Op{Kind: OpBind, Dst: dst, Value: value} }

// Read loads scalar v into register dst.
func Read(v string, dst int) Op { return Op{Kind: OpRead, Var: v, Dst: dst} }

// Write stores a literal to scalar v.
func Write(v string, value int64) Op { return Op{Kind: OpWrite, Var: v, Value: value} }

// WriteReg stores register src to scalar v.
func WriteReg(v string, src int) Op { return Op{Kind: OpWrite, Var: v, Src: src, FromReg: true} }

// Add performs v += delta, routed by v's discipline.
func Add(v string, delta int64) Op { return Op{Kind: OpAdd, Var: v, Value: delta} }

// AddN performs v += delta, n times.
func AddN(v string, delta int64, n int) Op { return Op{Kind: OpAdd, Var: v, Value: delta, Repeat: n} }

// Lock acquires the mutex of lock-protected scalar v.
func Lock(v string) Op { return Op{Kind: OpLock, Var: v} }

// Unlock releases the mutex of lock-protected scalar v.
func Unlock(v string) Op { return Op{Kind: OpUnlock, Var: v} }

// Jitter spins for a random count in [0, maxSpins]. Zero defers the bound
// to the harness configuration.
func Jitter(maxSpins int) Op { return Op{Kind: OpJitter, Iters: maxSpins} }

// ScanWrite writes random values to iters distinct random indices of array v.
func ScanWrite(v string, iters int) Op { return Op{Kind: OpScanWrite, Var: v, Iters: iters} }

// ScanRead reads iters distinct random indices of array v, checking
// coherence every checkEvery iterations and recording the anomaly count
// into register dst.
func ScanRead(v string, iters, checkEvery, dst int) Op {
	return Op{Kind: OpScanRead, Var: v, Iters: iters, CheckEvery: checkEvery, Dst: dst}
}
