// Package notifications delivers queue events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Each event can be
// switched off individually; the test event always goes out so operators can
// verify delivery.
package notifications
