// Package services implements the application core: the resolution
// policy that turns observed merchant names into registry mutations,
// read access to the registry, and settings management. Services depend
// only on domain types and ports; adapters are injected.
package services
