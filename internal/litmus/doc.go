// Package litmus defines the data model for memory-model litmus tests:
// shared-variable declarations with access disciplines, worker programs as
// sequences of typed operations, trial outcomes, and the allowed/forbidden
// outcome oracle.
//
// Tests are plain data. The same engine executes any Test without
// recompilation; the catalog package ships ready-made tests and the engine
// package runs them.
package litmus
