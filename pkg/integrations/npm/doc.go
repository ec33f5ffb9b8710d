// Package npm provides an HTTP client for the npm registry API.
//
// # Usage
//
//	client := npm.NewClient(cache, npm.DefaultRegistry, os.Getenv("NPM_TOKEN"))
//	p, err := client.FetchPackument(ctx, "express", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res := classifier.Classify(p)
//
// # Packuments
//
// The client requests the full registry document (not the abbreviated
// install metadata, which omits "exports" on older records) and keeps only
// the manifest tagged "latest". Other versions are never decoded.
//
// # Caching
//
// Trimmed documents are cached under "npm:<name>" for the cache TTL, which
// mirrors an offline-first fetch. Pass refresh=true to bypass the cache.
//
// # Errors
//
// Every failure is a [*RegistryError] naming the package. Unwrap it with
// errors.Is against [integrations.ErrNotFound], [integrations.ErrUnauthorized]
// and [integrations.ErrNetwork].
//
// [integrations.ErrNotFound]: github.com/matzehuels/esmstat/pkg/integrations.ErrNotFound
// [integrations.ErrUnauthorized]: github.com/matzehuels/esmstat/pkg/integrations.ErrUnauthorized
// [integrations.ErrNetwork]: github.com/matzehuels/esmstat/pkg/integrations.ErrNetwork
package npm
