// Package pctx builds contexts that carry a logger.
//
// Commands get their root context from Background; tests use TestContext.  Work that deserves its
// own logger name, like one region query out of many, gets a Child:
//
//	eg.Go(func() error { return query(pctx.Child(ctx, "query", pctx.WithFields(...)), r) })
//
// Child names concatenate with dots, so a log line from a region query inside csictl shows up as
// "csictl.query".  Use oneCamelCaseWord for names, and let parents name their children.
package pctx
