// Package preflight provides readiness checks for the speech engine and the
// filesystem paths that polyscribe depends on.
//
// These checks run in two contexts:
//   - The daemon runs the directory checks before it binds the HTTP listener
//     and refuses to start when the state directory is unusable.
//   - The CLI "polyscribe status" command runs RunAll to display engine and
//     directory health.
package preflight
