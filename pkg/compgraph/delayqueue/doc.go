// Package delayqueue implements a thread-safe, time-ordered priority queue.
//
// Elements are pushed with a delay and become eligible for popping once
// their ready-time (push-time + delay) has elapsed. Consumers either poll
// non-blocking with Pop or block with a bounded wait using PopWait, which
// is the primitive a WorkerPool uses to drain its job queue without ever
// blocking indefinitely.
package delayqueue
