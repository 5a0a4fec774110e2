package webhook

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"release_relay/internal/model"
)

func TestNewMessage(t *testing.T) {
	ann := model.Announcement{
		Title: "New thing launched",
		Body:  "A new thing is now generally available.",
		Link:  "https://vendor.example.com/new/thing/",
	}

	got := NewMessage(ann)

	want := Message{
		Text: "New thing launched",
		Blocks: []Block{
			{
				Type: "section",
				Text: &Text{
					Type: "mrkdwn",
					Text: ":rocket: <https://vendor.example.com/new/thing/|New thing launched>",
				},
			},
			{
				Type: "section",
				Text: &Text{Type: "plain_text", Text: "A new thing is now generally available."},
				Accessory: &Accessory{
					Type:     "button",
					Text:     &Text{Type: "plain_text", Text: "Read More"},
					Style:    "primary",
					URL:      "https://vendor.example.com/new/thing/",
					ActionID: "button-link",
				},
			},
			{Type: "divider"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMessageEmptyBody(t *testing.T) {
	ann := model.Announcement{
		Title: "Headline only",
		Link:  "https://vendor.example.com/new/thing/",
	}

	got := NewMessage(ann)
	if diff := cmp.Diff("Headline only", got.Blocks[1].Text.Text); diff != "" {
		t.Errorf("empty body must fall back to title (-want +got):\n%s", diff)
	}
}
