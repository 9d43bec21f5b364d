// Package notifier delivers messages to the single configured chat.
//
// Two kinds of messages go through it: verdict changes (Notify) and
// best-effort operator error reports (ReportError). Both return a boolean
// instead of an error so a failed delivery never aborts the poll loop; the
// caller uses the result to decide whether to advance its state.
//
// # Transport
//
// The service delegates delivery to a transport.Sender (the Telegram
// adapter). Calls are throttled with a token bucket and bounded by a
// per-send timeout.
//
// # History
//
// For debugging, the service keeps a small in-memory history of recent
// delivery attempts.
package notifier
