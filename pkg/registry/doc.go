// Package registry defines the closed set of launcher commands and the static
// table of launchable service definitions. It is pure lookup: the table is
// built once at process start and never mutated, and resolution has no side
// effects.
package registry
