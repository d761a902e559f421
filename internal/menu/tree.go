package menu

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownSection is returned for section names outside Sections.
var ErrUnknownSection = errors.New("unknown config section")

// legacyListIntro replaces the message of migrated list commands, whose
// message used to hold the list id.
const legacyListIntro = "Aquí tienes las opciones disponibles 👇"

// IsSection reports whether name is one of the config sections.
func IsSection(name string) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Section returns the named section as a JSON-encodable value.
func (t *Tree) Section(name string) (any, error) {
	switch name {
	case SectionResponses:
		return t.Responses, nil
	case SectionLists:
		return t.Lists, nil
	case SectionListResponses:
		return t.ListResponses, nil
	case SectionSubmenus:
		return t.Submenus, nil
	case SectionSubmenuResponses:
		return t.SubmenuResponses, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSection, name)
}

// SetSection decodes raw into the named section, replacing its contents.
func (t *Tree) SetSection(name string, raw []byte) error {
	var err error
	switch name {
	case SectionResponses:
		var v map[string]Command
		if err = json.Unmarshal(raw, &v); err == nil {
			t.Responses = v
		}
	case SectionLists:
		var v map[string]List
		if err = json.Unmarshal(raw, &v); err == nil {
			t.Lists = v
		}
	case SectionListResponses:
		var v Replies
		if err = json.Unmarshal(raw, &v); err == nil {
			t.ListResponses = v
		}
	case SectionSubmenus:
		var v map[string]List
		if err = json.Unmarshal(raw, &v); err == nil {
			t.Submenus = v
		}
	case SectionSubmenuResponses:
		var v Replies
		if err = json.Unmarshal(raw, &v); err == nil {
			t.SubmenuResponses = v
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSection, name)
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// Normalize fills nil maps, normalizes trigger keys and migrates legacy
// list commands that named their list in Message instead of FollowUp.
func (t *Tree) Normalize() {
	if t.Lists == nil {
		t.Lists = map[string]List{}
	}
	if t.ListResponses == nil {
		t.ListResponses = Replies{}
	}
	if t.Submenus == nil {
		t.Submenus = map[string]List{}
	}
	if t.SubmenuResponses == nil {
		t.SubmenuResponses = Replies{}
	}

	responses := make(map[string]Command, len(t.Responses))
	for trigger, cmd := range t.Responses {
		if cmd.Type == "" {
			cmd.Type = CommandText
		}
		if cmd.Type == CommandList && cmd.FollowUp == "" {
			cmd.FollowUp = cmd.Message
			cmd.Message = legacyListIntro
		}
		responses[NormalizeTrigger(trigger)] = cmd
	}
	t.Responses = responses
}
