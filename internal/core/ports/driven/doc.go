// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the embedding provider, the merchant
// registry store, the vector index, the LLM service and the classifier
// built on top of it. Each port is independently substitutable with a
// test double.
package driven
