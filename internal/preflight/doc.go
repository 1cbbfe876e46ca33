// Package preflight provides readiness checks for the directories and
// external services Atelier depends on.
//
// `atelier check` prints every result; the daemon runs the same checks at
// startup and logs failures without refusing to start, since the catalogue
// still works when a model or search provider is unavailable.
package preflight
