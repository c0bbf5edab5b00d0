// Package notifications delivers push notifications for queue lifecycle
// events via ntfy.
package notifications
