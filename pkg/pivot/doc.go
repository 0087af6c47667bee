// Package pivot rewrites PIVOT and UNPIVOT table references into plain
// query trees and binds them.
//
// A PIVOT becomes four nested query levels:
//
//  1. SELECT groups, pivot expressions, aggregates FROM source GROUP BY groups, pivots
//  2. SELECT groups, list(aggregate), list(pivot) FROM (1) GROUP BY groups
//  3. SELECT groups, map(pivot list, aggregate list) FROM (2)
//  4. SELECT groups, array_extract(map_extract(map, value), 1) AS value, ... FROM (3)
//
// An UNPIVOT becomes a single level that unnests a constant list of key
// names alongside one list_value(...) per value column. Rows whose
// unnested value is NULL are removed by a filter in an extra wrapping
// level unless INCLUDE NULLS is set.
//
// Synthesized names use the __internal_pivot_ prefix with per-rewrite
// counters, so they never collide across rewrites or with user names.
package pivot
