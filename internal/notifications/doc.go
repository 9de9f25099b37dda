// Package notifications turns processing events into messages for the
// document owner.
//
// Messages are delivered through ntfy using the topic configured in
// NTFY_TOPIC_URL and fall back to a no-op transport when no topic is set.
// Delivery failures are logged and swallowed; only malformed events are
// reported back to the caller.
package notifications
