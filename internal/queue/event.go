// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// NotificationQueueName is the durable queue carrying outbound user
// notifications. The mail sender consumes it; this service only publishes
// and, in development, runs the logging consumer below.
const NotificationQueueName = "user.notification"

// Notification kinds.
const (
	KindActivation    = "activation"
	KindPasswordReset = "password_reset"
)

// NotificationEvent asks the external mail collaborator to deliver a token
// link to an address. The token is the complete state: nothing about the
// request is persisted on this side.
type NotificationEvent struct {
	ID       string `json:"id"`        // unique event id
	Kind     string `json:"kind"`      // activation | password_reset
	Email    string `json:"email"`     // recipient address
	Token    string `json:"token"`     // signed token to embed in the link
	IssuedAt string `json:"issued_at"` // RFC3339 UTC
}
