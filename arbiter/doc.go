// Package arbiter grants requesters exclusive ownership of resource pairs
// arranged in a ring of N resources, where requester i needs
// resources i and (i+1) mod N at the same time.
//
// Strategies:
//
//   - [BoundedConcurrency]
//
//     At most N-1 requesters may attempt acquisition at once,
//     so at least one of them can always obtain both resources.
//
//   - [CentralBroker]
//
//     One mutex guards an availability flag per resource.
//     Both resources of a pair are reserved together or not at all,
//     and queued requesters whose pairs overlap are served in arrival order.
//
//   - [TimeoutBackoff]
//
//     Resources are locked in ascending order, each within a timeout.
//     A timed out attempt releases what it holds, backs off
//     exponentially (with jitter) and returns [ErrAcquisitionTimeout].
//
//   - [PriorityAging]
//
//     Resources are locked in ascending order after a delay that shrinks
//     every time the requester tries, and resets once it has been served.
//
// Every strategy hands out a [Guard] that must be released.
// Durations are waited on through a [Sleeper], so tests can
// replace wall-clock time.
package arbiter
