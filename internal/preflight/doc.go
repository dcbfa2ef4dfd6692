// Package preflight provides readiness checks for the external tools and
// filesystem paths trackpull depends on.
//
// These checks are advisory and never run on the per-track hot path. The CLI
// "check" command and the HTTP diagnostics endpoint call RunAll; tool status
// comes from deps.Probe.
package preflight
