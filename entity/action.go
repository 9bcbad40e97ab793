package entity

import "time"

// MenuContent is the rich list-menu shape a menu node emits.
type MenuContent struct {
	Header string   `json:"header,omitempty"`
	Body   string   `json:"body"`
	Footer string   `json:"footer,omitempty"`
	Button string   `json:"button,omitempty"`
	Items  []string `json:"items"`
}

// Action is an outbound message the engine hands to the messaging gateway.
// Exactly one of Text, Options or Menu content applies: a plain message has
// only Text, a button prompt carries Options, a list menu carries Menu.
type Action struct {
	ContactID string       `json:"contact_id"`
	Text      string       `json:"text"`
	Options   []string     `json:"options,omitempty"`
	Menu      *MenuContent `json:"menu,omitempty"`
}

// InboundMessage is a free-text event from the messaging gateway.
type InboundMessage struct {
	ContactID string    `json:"contactId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// InboundSelection is a button/menu choice event from the messaging gateway.
type InboundSelection struct {
	ContactID string `json:"contactId"`
	Selection int    `json:"selection"`
}
