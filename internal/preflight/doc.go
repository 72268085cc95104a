// Package preflight provides readiness checks for the filesystem paths and
// local databases creditwatch depends on.
//
// The CLI "creditwatch doctor" command renders RunAll's results. Each check is
// gated by its config toggle; disabled features are skipped.
package preflight
