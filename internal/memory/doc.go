// Package memory divides a container memory limit between the Go heap and
// libvips.
//
// GOMEMLIMIT must be set explicitly, unlike GOMAXPROCS which Go derives from
// cgroup CPU limits. libvips allocates outside the Go heap, so the part of
// the container limit not given to Go is the reserve libvips works in.
// [Plan] computes a [Budget] from the environment. [ConfigureFromEnv] also
// applies the Go limit:
//
//	budget := memory.ConfigureFromEnv()
//	c, err := codec.New(backend, codec.Options{VipsCacheMem: budget.VipsCache})
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go variable. If set it wins and is only reported.
//   - MEMORY_LIMIT: Container memory limit in bytes, typically from the
//     Kubernetes Downward API.
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap, in (0, 1].
//     Defaults to 0.75.
//
// A quarter of the reserve, clamped to 16-512 MiB, becomes the libvips
// operation cache.
package memory
