// Package crawl fetches, classifies and snapshots a list of npm packages.
//
// A [Runner] walks the package list in batches. Packages inside a batch are
// fetched concurrently and classified as soon as they arrive. A failure that
// concerns one package (not found, bad name, rejected credentials) marks that
// package as missing; a transient network failure that outlives the client's
// own retries fails the batch, which is retried after a delay. After every
// batch the partial snapshot is saved, so an interrupted run still leaves a
// usable file behind.
//
//	r := &crawl.Runner{
//	    Fetcher:    npm.NewClient(cache, npm.DefaultRegistry, token),
//	    Classifier: classify.New(pol),
//	    Store:      store,
//	    Logger:     logger,
//	}
//	sum, err := r.Run(ctx, names)
package crawl
