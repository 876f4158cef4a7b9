package tracker

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/text/language"
)

// Known preference keys.
const (
	PrefOfflineBook = "offline_book"
	PrefLanguage    = "language"
)

// Preferences returns the stored preferences, or nil when no tutorial
// exists.
func (t *Tracker) Preferences(ctx context.Context) (Preferences, error) {
	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}
	return state.Preferences, nil
}

// UpdatePreferences shallow-merges patch into the stored preferences and
// returns the result. It returns nil when no tutorial exists.
func (t *Tracker) UpdatePreferences(ctx context.Context, patch Preferences) (Preferences, error) {
	patch = maps.Clone(patch)
	if err := normalizePreferences(patch); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, err := t.load(ctx)
	if err != nil || state == nil {
		return nil, err
	}

	merged := state.Preferences
	if merged == nil {
		merged = Preferences{}
	}
	maps.Copy(merged, patch)
	if err := t.store.SavePreferences(ctx, state.Tutorial.ID, merged, t.now()); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return merged, nil
}

// normalizePreferences checks the known keys in place. language is
// canonicalised to its BCP 47 form.
func normalizePreferences(p Preferences) error {
	if v, ok := p[PrefOfflineBook]; ok {
		if _, isBool := v.(bool); !isBool {
			return fmt.Errorf("preference %s must be a boolean, got %T", PrefOfflineBook, v)
		}
	}
	if v, ok := p[PrefLanguage]; ok {
		s, isString := v.(string)
		if !isString {
			return fmt.Errorf("preference %s must be a string, got %T", PrefLanguage, v)
		}
		tag, err := language.Parse(s)
		if err != nil {
			return fmt.Errorf("preference %s: invalid language tag %q: %w", PrefLanguage, s, err)
		}
		p[PrefLanguage] = tag.String()
	}
	return nil
}

// OfflineBook reports whether the learner asked for an offline book.
func (p Preferences) OfflineBook() bool {
	v, _ := p[PrefOfflineBook].(bool)
	return v
}

// Language returns the instruction language, defaulting to English.
func (p Preferences) Language() language.Tag {
	if s, ok := p[PrefLanguage].(string); ok {
		if tag, err := language.Parse(s); err == nil {
			return tag
		}
	}
	return language.English
}
