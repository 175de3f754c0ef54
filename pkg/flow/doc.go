/*
Package flow validates draft flow definitions and wraps the result in an
immutable Validated value.

The engine and the registry only ever accept *Validated, so every flow that
reaches a conversation has passed the structural checks: unique node ids,
exactly one start node, resolvable transition targets, non-empty branch maps
and end nodes without successors.

Cycles are not rejected: they are bounded at runtime by the engine's step
budget. Validation reports them (and other authoring smells) as warnings.
*/
package flow
