// Package cache provides a small generic LRU cache for device objects.
//
// Cache[K, V] holds at most a fixed number of entries. Once full, inserting
// a new key evicts the least recently used one and hands it to the eviction
// callback, so the owner can release whatever the value holds:
//
//	pipelines := cache.New[key, hal.RenderPipeline](64, func(_ key, p hal.RenderPipeline) {
//		retire(p)
//	})
//	p, err := pipelines.GetOrCreate(k, build)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
