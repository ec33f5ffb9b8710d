// Package classify decides the module format of an npm package.
//
// # Overview
//
// A [Packument] is the registry document of a package. [Classifier.Classify]
// looks only at the manifest tagged "latest" and returns a [Result] holding
// one of four styles:
//
//   - [StyleESM]: native ECMAScript modules only
//   - [StyleDual]: entry points for both import and require
//   - [StyleFaux]: a legacy "module" field without native ESM
//   - [StyleCJS]: CommonJS only
//
// Packuments without a "latest" tag, and those rejected by the configured
// [Filter] (see package policy), are skipped with a [Reason].
//
// # Exports
//
// The "exports" field is decoded into an [ExportsNode] tagged union. The
// classifier walks it recursively: lists are OR'ed alternatives, maps with a
// "."-prefixed key are subpath maps, other maps are condition maps, and
// string leaves count only when they end in .mjs or .cjs. Numbers and
// booleans are reported as [Anomaly] values and never abort classification.
//
// # Usage
//
//	pol, _ := policy.Default()
//	c := classify.New(pol)
//
//	var p classify.Packument
//	_ = json.Unmarshal(data, &p)
//
//	res := c.Classify(&p)
//	if res.Skipped {
//	    fmt.Println("skipped:", res.Reason)
//	} else {
//	    fmt.Println(res.Style)
//	}
package classify
