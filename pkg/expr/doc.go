// Package expr defines the expression graph for implicit functions.
// Trees are handles into an immutable DAG of interned nodes owned by an
// Arena; structurally identical sub-expressions share one Node, so
// equality is a pointer comparison.
package expr
