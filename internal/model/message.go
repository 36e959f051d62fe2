package model

// A Message is a single-notice submission payload. The body is rendered into
// a print entry's content and To becomes its sorting field.
type Message struct {
	NotificationID string `json:"notificationId"`
	From           string `json:"from"`
	To             string `json:"to"`
	OutputFormat   string `json:"outputFormat"`
	Header         string `json:"header"`
	Body           string `json:"body"`
}
