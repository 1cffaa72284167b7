// Package prefs persists dashboard preferences next to the session tokens.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

type Preferences struct {
	store storage.KeyValueStore
}

func New(store storage.KeyValueStore) *Preferences {
	return &Preferences{store: store}
}

// Theme returns the saved theme; an absent or unrecognised value is light.
func (p *Preferences) Theme(ctx context.Context) (Theme, error) {
	v, err := p.store.Get(ctx, models.StorageKeyTheme)
	if errors.Is(err, storage.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", fmt.Errorf("load theme: %w", err)
	}
	t, err := ParseTheme(v)
	if err != nil {
		return ThemeLight, nil
	}
	return t, nil
}

func (p *Preferences) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := p.store.Set(ctx, models.StorageKeyTheme, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Preferences) ToggleTheme(ctx context.Context) (Theme, error) {
	cur, err := p.Theme(ctx)
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if cur == ThemeDark {
		next = ThemeLight
	}
	if err := p.SetTheme(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}
