// Package integrations provides the HTTP client shared by registry API clients.
//
// # Client Pattern
//
// A registry client embeds [Client] and adds a fetch method:
//
//	client := npm.NewClient(cache, npm.DefaultRegistry, token)
//	doc, err := client.FetchPackument(ctx, "react", false)  // false = use cache
//
// [Client] handles:
//   - default headers (auth, accept, user agent)
//   - response caching through [httputil.Cache]
//   - retry with exponential backoff for network errors, 5xx and 429
//
// # Errors
//
// Status codes map onto sentinel errors: 404 is [ErrNotFound], 401 and 403
// are [ErrUnauthorized], everything else that is not 200 wraps [ErrNetwork].
// Connection failures, 5xx and 429 are wrapped in [httputil.RetryableError].
//
// [httputil.Cache]: github.com/matzehuels/esmstat/pkg/httputil.Cache
// [httputil.RetryableError]: github.com/matzehuels/esmstat/pkg/httputil.RetryableError
package integrations
