package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/memory"
)

func TestTheme_DefaultsAndToggle(t *testing.T) {
	store := memory.NewKeyValueStore()
	p := New(store)
	ctx := context.Background()

	theme, err := p.Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, theme)

	theme, err = p.ToggleTheme(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeDark, theme)

	raw, err := store.Get(ctx, models.StorageKeyTheme)
	require.NoError(t, err)
	require.Equal(t, "dark", raw)

	theme, err = p.ToggleTheme(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, theme)
}

func TestTheme_GarbageValueIsLight(t *testing.T) {
	store := memory.NewKeyValueStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, models.StorageKeyTheme, "neon"))

	theme, err := New(store).Theme(ctx)
	require.NoError(t, err)
	require.Equal(t, ThemeLight, theme)
}

func TestSetTheme_RejectsUnknown(t *testing.T) {
	require.Error(t, New(memory.NewKeyValueStore()).SetTheme(context.Background(), Theme("neon")))
}
