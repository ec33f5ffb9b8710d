// Package httputil provides caching and retry for the registry client.
//
// # Caching
//
// [Cache] is implemented by [FileCache] (JSON files under ~/.cache/esmstat/,
// TTL by modification time), [RedisCache] (shared cache for several crawl
// hosts, TTL enforced by Redis) and [NullCache] (caching disabled).
//
//	cache, err := httputil.NewFileCache("", 24*time.Hour)
//	npm := cache.Namespace("npm:")
//	ok, err := npm.Get(ctx, "react", &doc)
//	if !ok {
//	    doc = fetchFromAPI()
//	    npm.Set(ctx, "react", doc)
//	}
//
// Keys should be namespaced by registry to avoid collisions.
//
// # Retry
//
// [Retry] and [RetryPolicy] re-run an operation when it fails with a
// [RetryableError]. Other errors are returned immediately. The delay either
// doubles after each attempt or stays flat:
//
//	err := httputil.RetryPolicy{
//	    Attempts: 6,
//	    Delay:    10 * time.Second,
//	    Backoff:  httputil.BackoffFlat,
//	}.Do(ctx, fetchBatch)
//
// The registry client uses [RetryWithBackoff]: 3 attempts, 1 second initial
// delay. The crawl runner retries whole batches with a flat 10 second delay.
package httputil
