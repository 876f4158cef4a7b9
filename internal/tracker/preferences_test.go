package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

func TestPreferences_CreateAndMerge(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	def := twoLessonDef()
	def.Preferences = map[string]any{"language": "pt-br", "offline_book": true}
	_, err := tr.CreateTutorial(ctx, def)
	require.NoError(t, err)

	prefs, err := tr.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", prefs["language"])
	assert.True(t, prefs.OfflineBook())

	merged, err := tr.UpdatePreferences(ctx, tracker.Preferences{"language": "fr", "theme": "dark"})
	require.NoError(t, err)
	assert.Equal(t, "fr", merged["language"])
	assert.Equal(t, "dark", merged["theme"])
	assert.Equal(t, true, merged["offline_book"], "keys not in the patch are kept")
	assert.Equal(t, "fr", merged.Language().String())

	prefs, err = tr.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, merged, prefs)
}

func TestPreferences_Validation(t *testing.T) {
	tr := newTestTracker(t)
	ctx := t.Context()

	_, err := tr.CreateTutorial(ctx, twoLessonDef())
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch tracker.Preferences
	}{
		{"offline_book not a bool", tracker.Preferences{"offline_book": "yes"}},
		{"language not a string", tracker.Preferences{"language": 42}},
		{"language not a tag", tracker.Preferences{"language": "not a language!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.UpdatePreferences(ctx, tt.patch)
			assert.Error(t, err)
		})
	}

	prefs, err := tr.Preferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestPreferences_Defaults(t *testing.T) {
	var prefs tracker.Preferences
	assert.False(t, prefs.OfflineBook())
	assert.Equal(t, language.English.String(), prefs.Language().String())
}
