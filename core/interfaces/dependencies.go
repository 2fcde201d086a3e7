// ABOUTME: Dependencies container provides dependency injection for core services
// ABOUTME: Bundles the ambient ports every pipeline component may need

package interfaces

import "time"

// Dependencies holds the shared external dependencies of the core packages
type Dependencies struct {
	// Cache provides caching functionality; optional
	Cache Cache

	// HTTPClient provides HTTP request functionality
	HTTPClient HTTPClient

	// Logger provides structured logging
	Logger Logger

	// Clock returns the current time; nil means time.Now
	Clock func() time.Time
}

// Now returns the dependency clock's current time
func (d Dependencies) Now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}
