// Package workerpool runs jobs on a fixed set of worker goroutines backed
// by a delayqueue.DelayQueue.
//
// A Pool never applies back-pressure: Submit and SubmitDelayed only ever
// block to take the queue's internal mutex, so callers are never stalled
// by a full pool. Workers recover from panicking jobs so one bad job
// cannot take down the pool.
//
// SubmitNamedRepeatable tracks a repeatable job's stop flag in a
// registry.Registry keyed by name, so a long-lived caller (a heartbeat,
// a polling loop) can halt it later with StopNamed without holding on to
// the job's closure or any channel of its own.
package workerpool
