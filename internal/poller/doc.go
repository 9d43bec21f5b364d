// Package poller contains the single-threaded poll loop.
//
// Each cycle fetches the review payload for the current cursor, validates
// it, turns the most recent homework into a verdict message and, when the
// verdict differs from the last delivered one, sends it. Any failure of a
// cycle (classified error or recovered panic) is logged and reported to the
// chat once, and the loop keeps going. The cursor only advances after a
// confirmed delivery.
//
// Between cycles the loop sleeps until the next tick of a cron.Schedule; the
// sleep ends early when the context is cancelled.
package poller
