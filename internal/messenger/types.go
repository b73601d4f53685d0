// Package messenger speaks the Messenger platform: webhook ingress, Send API and relay egress.
package messenger

import (
	"fmt"
	"strings"
)

// ObjectPage is the only webhook object the bot accepts.
const ObjectPage = "page"

// Payload is the body of a webhook POST.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is one platform event. The relay transport delivers the same shape.
type Messaging struct {
	Sender    Party    `json:"sender"`
	Recipient Party    `json:"recipient"`
	Timestamp int64    `json:"timestamp"`
	ThreadKey string   `json:"thread_key,omitempty"`
	ThreadID  string   `json:"thread_id,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type Message struct {
	MID    string `json:"mid,omitempty"`
	Text   string `json:"text,omitempty"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

// Event is an inbound text message reduced to what the bot needs.
type Event struct {
	SenderID       string
	ConversationID string
	Text           string
	MID            string
	Timestamp      int64
}

// Event converts m. ok is false for non-message events, echoes and messages without text.
func (m Messaging) Event() (Event, bool) {
	if m.Message == nil || m.Message.IsEcho {
		return Event{}, false
	}
	sender := strings.TrimSpace(m.Sender.ID)
	if sender == "" || strings.TrimSpace(m.Message.Text) == "" {
		return Event{}, false
	}
	conv := strings.TrimSpace(m.ThreadKey)
	if conv == "" {
		conv = strings.TrimSpace(m.ThreadID)
	}
	if conv == "" {
		conv = sender
	}
	return Event{
		SenderID:       sender,
		ConversationID: conv,
		Text:           m.Message.Text,
		MID:            m.Message.MID,
		Timestamp:      m.Timestamp,
	}, true
}

// Events flattens every usable message event of the payload in delivery order.
func (p *Payload) Events() []Event {
	var out []Event
	for _, e := range p.Entry {
		for _, m := range e.Messaging {
			if ev, ok := m.Event(); ok {
				out = append(out, ev)
			}
		}
	}
	return out
}

// SendRequest is the Send API body. Relay egress frames use it unchanged.
type SendRequest struct {
	Recipient Party       `json:"recipient"`
	Message   SendMessage `json:"message"`
}

type SendMessage struct {
	Text string `json:"text"`
}

// SendResponse is returned by the Send API on success.
type SendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// PageInfo is the subset of GET /me used to check a page token.
type PageInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// APIError is the Graph API error envelope.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error: status=%d code=%d type=%s message=%s", e.Status, e.Code, e.Type, e.Message)
}
