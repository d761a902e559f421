package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reply types as stored in the "type" discriminator.
const (
	ReplyText        = "text"
	ReplyWithURL     = "text_with_url"
	ReplyWithButtons = "text_with_buttons"
	ReplyWithSubmenu = "text_with_submenu"
)

// Reply is the answer to a list row selection or a button press.
// The set of implementations is closed: TextReply, URLReply, ButtonsReply
// and SubmenuReply.
type Reply interface {
	Kind() string
	Base() ReplyBase
	isReply()
}

// ReplyBase carries the fields every reply variant has.
type ReplyBase struct {
	Message  string `json:"message"`
	FollowUp string `json:"followUp,omitempty"`
}

func (b ReplyBase) Base() ReplyBase { return b }
func (ReplyBase) isReply()          {}

type TextReply struct {
	ReplyBase
}

type URLReply struct {
	ReplyBase
	URL     string `json:"url"`
	URLText string `json:"url_text,omitempty"`
}

type ButtonsReply struct {
	ReplyBase
	Buttons []Button `json:"buttons"`
}

type SubmenuReply struct {
	ReplyBase
	Submenu string `json:"submenu"`
}

func (TextReply) Kind() string    { return ReplyText }
func (URLReply) Kind() string     { return ReplyWithURL }
func (ButtonsReply) Kind() string { return ReplyWithButtons }
func (SubmenuReply) Kind() string { return ReplyWithSubmenu }

// Replies maps a row or button id to its reply.
type Replies map[string]Reply

// MarshalJSON writes each reply with its "type" discriminator.
func (r Replies) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r))
	for id, reply := range r {
		data, err := MarshalReply(reply)
		if err != nil {
			return nil, fmt.Errorf("reply %q: %w", id, err)
		}
		out[id] = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes replies by their "type" discriminator. A bare string
// value decodes to a TextReply.
func (r *Replies) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Replies, len(raw))
	for id, v := range raw {
		reply, err := UnmarshalReply(v)
		if err != nil {
			return fmt.Errorf("reply %q: %w", id, err)
		}
		out[id] = reply
	}
	*r = out
	return nil
}

// MarshalReply encodes a single reply including its "type" field.
func MarshalReply(reply Reply) ([]byte, error) {
	var body any
	switch v := reply.(type) {
	case TextReply:
		body = struct {
			Type string `json:"type"`
			TextReply
		}{ReplyText, v}
	case URLReply:
		body = struct {
			Type string `json:"type"`
			URLReply
		}{ReplyWithURL, v}
	case ButtonsReply:
		body = struct {
			Type string `json:"type"`
			ButtonsReply
		}{ReplyWithButtons, v}
	case SubmenuReply:
		body = struct {
			Type string `json:"type"`
			SubmenuReply
		}{ReplyWithSubmenu, v}
	default:
		return nil, fmt.Errorf("unsupported reply %T", reply)
	}
	return json.Marshal(body)
}

// UnmarshalReply decodes a single reply.
func UnmarshalReply(data []byte) (Reply, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return TextReply{ReplyBase{Message: msg}}, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case ReplyText, "":
		var v TextReply
		err := json.Unmarshal(data, &v)
		return v, err
	case ReplyWithURL:
		var v URLReply
		err := json.Unmarshal(data, &v)
		return v, err
	case ReplyWithButtons:
		var v ButtonsReply
		err := json.Unmarshal(data, &v)
		return v, err
	case ReplyWithSubmenu:
		var v SubmenuReply
		err := json.Unmarshal(data, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown reply type %q", head.Type)
	}
}
