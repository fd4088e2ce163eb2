// Package xerr defines the translator's three sentinel error kinds
// (spec.md §7), kept in their own leaf package so every stage — the type
// translator, the lowerer, the macro parser, and the top-level context —
// can wrap and check them without an import cycle.
package xerr

import "errors"

var (
	// ErrOutOfMemory is unrecoverable and propagates to the caller.
	// Go's allocator does not expose exhaustion the way the front end's
	// arena does, so this exists for interface fidelity with spec.md §6's
	// entry point rather than because normal code triggers it.
	ErrOutOfMemory = errors.New("xlate: out of memory")

	// ErrUnsupportedType means the type translator could not express a
	// C type in Target.
	ErrUnsupportedType = errors.New("xlate: unsupported type")

	// ErrUnsupportedTranslation means the lowerer encountered a C
	// construct it cannot express.
	ErrUnsupportedTranslation = errors.New("xlate: unsupported translation")
)
