// Package consumer implements the repository's command pipeline: a
// worker pool that drives each published command through Timestamping,
// LayoutCheck, Locking, Executing, Appending, Indexing, Notifying, and
// a terminal Succeeded/Failed resolution.
//
// The worker-pool-over-a-bounded-channel shape is grounded on
// internal/workqueue/consumer.go's ConsumerRegistry loop, adapted from
// "poll a Pebble index for leasable work" to "pull a command off a Go
// channel and drive it through the pipeline." Subscriber notification
// is grounded on internal/services/streams/service.go's per-subscriber
// isolation: each subscriber call gets its own timeout and a recovered
// panic is logged rather than allowed to affect sibling subscribers or
// the command's own result.
package consumer
