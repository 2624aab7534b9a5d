// Package device persists on-device settings: the theme and whether health
// sync is linked. Values live in a key-value store under fixed keys.
package device

import (
	"context"
	"errors"
	"fmt"
)

const (
	ThemeKey          = "fittrack-theme"
	HealthSyncLinkKey = "healthkit_linked"
)

// ErrUnknownTheme is returned when setting a theme that does not exist.
var ErrUnknownTheme = errors.New("unknown theme")

// Store is a string key-value store.
type Store interface {
	GetPref(ctx context.Context, key string) (string, bool, error)
	SetPref(ctx context.Context, key, value string) error
	DeletePref(ctx context.Context, key string) error
}

// Theme identifies a color theme.
type Theme string

const (
	SoftBlush Theme = "softBlush"
	SageGreen Theme = "sageGreen"
	LightGray Theme = "lightGray"
	Dark      Theme = "dark"

	DefaultTheme = SoftBlush
)

// ThemeConfig describes a theme for display.
type ThemeConfig struct {
	Key           Theme  `json:"key"`
	Name          string `json:"name"`
	BgPrimary     string `json:"bg_primary"`
	Accent        string `json:"accent"`
	GradientStart string `json:"gradient_start"`
}

var themes = map[Theme]ThemeConfig{
	SoftBlush: {Key: SoftBlush, Name: "Soft Blush", BgPrimary: "#FDF9F8", Accent: "#C9907E", GradientStart: "#C9988A"},
	SageGreen: {Key: SageGreen, Name: "Sage Green", BgPrimary: "#F7F9F7", Accent: "#7D9B7A", GradientStart: "#8FA88C"},
	LightGray: {Key: LightGray, Name: "Light Gray", BgPrimary: "#F8F8F8", Accent: "#737373", GradientStart: "#8C8C8C"},
	Dark:      {Key: Dark, Name: "Dark", BgPrimary: "#1A1A1A", Accent: "#A89E96", GradientStart: "#8C8C8C"},
}

// themeOrder is the display order.
var themeOrder = []Theme{SoftBlush, SageGreen, LightGray, Dark}

// Themes returns every theme in display order.
func Themes() []ThemeConfig {
	out := make([]ThemeConfig, 0, len(themeOrder))
	for _, k := range themeOrder {
		out = append(out, themes[k])
	}
	return out
}

// Valid reports whether t names a known theme.
func (t Theme) Valid() bool {
	_, ok := themes[t]
	return ok
}

// Preferences is the snapshot returned to callers.
type Preferences struct {
	Theme            Theme       `json:"theme"`
	ThemeConfig      ThemeConfig `json:"theme_config"`
	HealthSyncLinked bool        `json:"health_sync_linked"`
}

// Prefs reads and writes device settings.
type Prefs struct {
	store Store
}

func NewPrefs(store Store) *Prefs {
	return &Prefs{store: store}
}

// Load reads both settings. A missing or unrecognized theme falls back to
// DefaultTheme; a missing link flag reads as false.
func (p *Prefs) Load(ctx context.Context) (Preferences, error) {
	theme, err := p.Theme(ctx)
	if err != nil {
		return Preferences{}, err
	}
	linked, err := p.HealthSyncLinked(ctx)
	if err != nil {
		return Preferences{}, err
	}
	return Preferences{Theme: theme, ThemeConfig: themes[theme], HealthSyncLinked: linked}, nil
}

func (p *Prefs) Theme(ctx context.Context) (Theme, error) {
	v, ok, err := p.store.GetPref(ctx, ThemeKey)
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	if !ok || !Theme(v).Valid() {
		return DefaultTheme, nil
	}
	return Theme(v), nil
}

func (p *Prefs) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, t)
	}
	if err := p.store.SetPref(ctx, ThemeKey, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

func (p *Prefs) HealthSyncLinked(ctx context.Context) (bool, error) {
	v, _, err := p.store.GetPref(ctx, HealthSyncLinkKey)
	if err != nil {
		return false, fmt.Errorf("read health sync flag: %w", err)
	}
	return v == "true", nil
}

// SetHealthSyncLinked stores "true" when linked and removes the key otherwise.
func (p *Prefs) SetHealthSyncLinked(ctx context.Context, linked bool) error {
	var err error
	if linked {
		err = p.store.SetPref(ctx, HealthSyncLinkKey, "true")
	} else {
		err = p.store.DeletePref(ctx, HealthSyncLinkKey)
	}
	if err != nil {
		return fmt.Errorf("save health sync flag: %w", err)
	}
	return nil
}
