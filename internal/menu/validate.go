package menu

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"
)

const (
	MaxButtons        = 3
	MaxButtonTitleLen = 20
)

// Validate checks the tree against the limits WhatsApp enforces on
// interactive messages and the references replies make. All problems are
// returned joined.
func (t *Tree) Validate() error {
	var errs []error

	for _, trigger := range sortedKeys(t.Responses) {
		cmd := t.Responses[trigger]
		if cmd.Type != CommandText && cmd.Type != CommandList {
			errs = append(errs, fmt.Errorf("responses.%s: type must be %q or %q", trigger, CommandText, CommandList))
		}
	}
	for _, id := range sortedKeys(t.Lists) {
		if err := validateList(t.Lists[id]); err != nil {
			errs = append(errs, fmt.Errorf("lists.%s: %w", id, err))
		}
	}
	for _, id := range sortedKeys(t.Submenus) {
		if err := validateList(t.Submenus[id]); err != nil {
			errs = append(errs, fmt.Errorf("submenus.%s: %w", id, err))
		}
	}
	for _, id := range sortedKeys(t.ListResponses) {
		if err := ValidateReply(t.ListResponses[id]); err != nil {
			errs = append(errs, fmt.Errorf("listResponses.%s: %w", id, err))
		}
	}
	for _, id := range sortedKeys(t.SubmenuResponses) {
		if err := ValidateReply(t.SubmenuResponses[id]); err != nil {
			errs = append(errs, fmt.Errorf("submenuResponses.%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateReply checks the fields each reply variant requires.
func ValidateReply(r Reply) error {
	switch v := r.(type) {
	case TextReply:
		return nil
	case URLReply:
		if v.URL == "" {
			return errors.New("url is required")
		}
	case ButtonsReply:
		return ValidateButtons(v.Buttons)
	case SubmenuReply:
		if v.Submenu == "" {
			return errors.New("submenu is required")
		}
	default:
		return fmt.Errorf("unsupported reply %T", r)
	}
	return nil
}

// ValidateButtons enforces the reply-button limits.
func ValidateButtons(buttons []Button) error {
	if len(buttons) == 0 {
		return errors.New("at least one button is required")
	}
	if len(buttons) > MaxButtons {
		return fmt.Errorf("%d buttons, maximum is %d", len(buttons), MaxButtons)
	}
	for i, b := range buttons {
		if b.ID == "" {
			return fmt.Errorf("button %d: id is required", i)
		}
		if b.Title == "" {
			return fmt.Errorf("button %d: title is required", i)
		}
		if n := utf8.RuneCountInString(b.Title); n > MaxButtonTitleLen {
			return fmt.Errorf("button %d: title has %d chars, maximum is %d", i, n, MaxButtonTitleLen)
		}
	}
	return nil
}

func validateList(l List) error {
	if len(l.Sections) == 0 {
		return errors.New("at least one section is required")
	}
	for i, s := range l.Sections {
		if len(s.Rows) == 0 {
			return fmt.Errorf("section %d has no rows", i)
		}
		for j, row := range s.Rows {
			if row.ID == "" || row.Title == "" {
				return fmt.Errorf("section %d row %d: id and title are required", i, j)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
