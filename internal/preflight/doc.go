// Package preflight runs startup checks before the daemon begins
// processing: directory access, external tool availability, and the
// optional analyzer script.
package preflight
