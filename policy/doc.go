// Package policy maps full gRPC method names onto per-group limits such as
// a rate limit or a handler timeout.
//
//	r := policy.NewResolver(
//		policy.Group("search").
//			Exact("/gamecatalog.Catalog/Search").
//			Policy(policy.Policy{Timeout: 5 * time.Second}),
//	)
package policy
