// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build identity, stamped via -ldflags by the release build. The version
// command prints these.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
