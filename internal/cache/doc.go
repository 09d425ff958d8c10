// Package cache memoizes rendered image bytes keyed by the full render request
// signature. Backends register themselves by name (memory, null, redis) the same
// way the config layer resolves them from CACHE_TYPE, and every backend enforces
// a fixed TTL measured from insertion with no refresh on read. Loader sits in
// front of a backend and collapses concurrent misses for the same key into a
// single render; failed renders are returned to the caller and never stored.
package cache
