// Package routing stores registered routes and matches requests against
// them.
//
// Routes live in three partitions keyed by HTTP method (GET and DELETE,
// POST and PUT, everything else), each backed by a chi radix tree used
// for matching only. A lookup either finds a route with its captured
// parameters, finds nothing, or finds the path under other methods and
// reports them as allowed.
//
// Patterns use chi syntax ({id}, {id:[0-9]+}) with one addition: a
// trailing {name:.*} segment is normalized to the catch-all "/*" and its
// value is exposed as the "any" parameter.
//
// Collector is the registration surface used by route files. It keeps a
// stack of group attributes so nested groups concatenate prefixes,
// dot-join names and union middleware lists.
//
// Example Usage:
//
//	table := routing.NewTable()
//	c := routing.NewCollector(table, "Api")
//	c.Group(routing.Group{Prefix: "users", As: "users"}, func(c *routing.Collector) {
//		c.Get("/{id}", routing.Options{As: "show"}, routing.Action("users", "Show"))
//	})
//	if err := c.Err(); err != nil { ... }
package routing
