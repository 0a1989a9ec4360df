// Package tieredtest provides reusable contract tests for tiered.Store
// implementations and for resolvers wired over them.
//
// Example pattern (backend test):
//
//	func TestRedisStoreContract(t *testing.T) {
//		client := redis.NewClient(&redis.Options{Addr: addr})
//		store := tiered.NewRedisStore(context.Background(), client, tiered.WithPrefix(t.Name()))
//		tieredtest.RunStoreContract(t, store, tieredtest.Options{})
//	}
//
// Example resolver contract over a file disk tier:
//
//	tieredtest.RunResolverContract(t, func(t *testing.T) *tiered.Resolver {
//		disk := tiered.NewFileStore(context.Background(), t.TempDir())
//		return tiered.NewResolver(nil, disk, nil)
//	})
package tieredtest
