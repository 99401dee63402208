// Package registry provides a generic thread-safe registry for values indexed by key.
//
// Registry is designed for read-heavy workloads using sync.RWMutex. It supports
// any comparable key type and any value type through Go generics.
//
// # Basic Usage
//
// Create a registry and register values:
//
//	r := registry.New[string, int]()
//	r.Register("one", 1)
//	r.Register("two", 2)
//
//	value, ok := r.Get("one")
//	if ok {
//	    fmt.Println(value) // Output: 1
//	}
//
// # Named Job Tracking
//
// workerpool.Pool uses a Registry[string, *atomic.Bool] to track the stop
// flag of every repeatable job submitted through SubmitNamedRepeatable,
// keyed by the name the caller chose:
//
//	stopped := &atomic.Bool{}
//	pool.named.Register("heartbeat", stopped)
//	// ... later, from any goroutine, by name alone ...
//	pool.StopNamed("heartbeat")
//
// Register in SubmitNamedRepeatable, Get and Delete in StopNamed, and Len in
// NamedJobCount are all exercised this way - see
// workerpool.Pool.SubmitNamedRepeatable.
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. The Range method iterates
// over a snapshot of the registry, allowing mutations during iteration without
// affecting the iteration itself:
//
//	r.Range(func(key string, value int) bool {
//	    // Safe to call r.Register() or r.Delete() here
//	    if value < 0 {
//	        r.Delete(key) // Won't affect current iteration
//	    }
//	    return true // continue iteration
//	})
package registry
