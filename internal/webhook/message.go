// Package webhook formats announcements as chat messages and delivers
// them to the configured webhook endpoints.
package webhook

import (
	"fmt"

	"release_relay/internal/model"
)

// Message is the webhook payload, following the Slack Block Kit
// layout: a linked headline, the summary with a read-more button, and
// a trailing divider.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// Block is a single Block Kit block.
type Block struct {
	Type      string     `json:"type"`
	Text      *Text      `json:"text,omitempty"`
	Accessory *Accessory `json:"accessory,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Accessory is a Block Kit accessory element, here always a link
// button.
type Accessory struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text"`
	Style    string `json:"style"`
	URL      string `json:"url"`
	ActionID string `json:"action_id"`
}

// NewMessage builds the webhook payload for one announcement.
func NewMessage(ann model.Announcement) Message {
	body := ann.Body
	if body == "" {
		// Slack rejects empty plain_text blocks.
		body = ann.Title
	}
	return Message{
		Text: ann.Title,
		Blocks: []Block{
			{
				Type: "section",
				Text: &Text{
					Type: "mrkdwn",
					Text: fmt.Sprintf(":rocket: <%s|%s>", ann.Link, ann.Title),
				},
			},
			{
				Type: "section",
				Text: &Text{
					Type: "plain_text",
					Text: body,
				},
				Accessory: &Accessory{
					Type:     "button",
					Text:     &Text{Type: "plain_text", Text: "Read More"},
					Style:    "primary",
					URL:      ann.Link,
					ActionID: "button-link",
				},
			},
			{
				Type: "divider",
			},
		},
	}
}
