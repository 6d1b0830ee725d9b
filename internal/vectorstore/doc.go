// Package vectorstore implements the brute-force exact nearest-neighbor
// search used for the handful of text/vision embedding models that back
// search at any one time: three parallel arrays (vectors, clip IDs, norms)
// searched by a single matrix-vector multiply per query.
//
// There is no teacher or pack precedent for this exact shape; it is built
// directly from the explicit load/append/remove/search algorithm this
// engine's embedding search requires, using the single-writer/shared-reader
// sync.RWMutex idiom the rest of this codebase already uses for its other
// actor-style stores (internal/storage.Store, internal/concurrency.ResourceMonitor).
package vectorstore
