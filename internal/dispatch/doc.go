// Package dispatch routes a validated print job to the sender for its kind.
//
// Dispatch is synchronous: the caller's request goroutine runs the sender and
// receives a normalized printjob.Result. Every failure below the dispatcher
// (validation, payload decoding, sender errors and sender panics) is turned
// into Result{Success: false}; nothing propagates as a crash.
//
// Routing:
//   - KindZPLRaw    → TextSender (raw spooler channel)
//   - KindZPLSocket → SocketWriter (TCP 9100 style)
//   - KindImage     → BlobSender (page layout, then document pipeline)
//   - KindDocument  → BlobSender (PDF renderer chain)
//
// Each outcome is published on the event hub as print.succeeded or
// print.failed.
package dispatch
