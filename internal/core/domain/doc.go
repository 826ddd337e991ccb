// Package domain contains the core business entities of the merchant
// resolver: canonical merchant records, resolution outcomes, classifier
// verdicts and the settings that govern the resolution policy. It has
// no dependencies on adapters or infrastructure.
package domain
