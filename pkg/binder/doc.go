// Package binder resolves names in query trees against a catalog.
//
// A Binder binds table references into Scopes. Each binding records the
// alias it is visible under and its output columns, so column references
// can be resolved, wildcards expanded, and derived tables registered.
// PIVOT and UNPIVOT references are delegated to a PivotHandler.
//
// A Binder and the scopes it creates are not safe for concurrent use.
// Catalogs are read-only during binding and may be shared.
package binder
