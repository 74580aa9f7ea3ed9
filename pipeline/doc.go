// Package pipeline extracts every page of a document on a bounded worker
// pool and reassembles the results in page order.
package pipeline
