// Package driving provides interfaces for application entry points
// (primary/inbound ports). The invoice-processing pipeline and the CLI
// talk to the core exclusively through these.
package driving
