// Package queue is the public facade over the shared task directory.
//
// A Queue ties together the task repository, the result store and the
// per-host activity log, all over one store.Store. Submitters call
// Submit and GetResult; workers call Pending, Claim and SubmitResult.
// Instances on different hosts coordinate purely through the store:
// atomic writes keep records consistent and per-task locks make claims
// exclusive. An optional bus.Notifier broadcasts lifecycle events, but
// nothing depends on their delivery.
package queue
