package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"vidnarrate/config"
	"vidnarrate/models"
)

// Setting keys recognised in the settings table.
const (
	SettingDefaultVoice         = "default_tts_voice"
	SettingTranslationEnabled   = "translation_enabled"
	SettingMaxDescriptionLength = "max_description_length"
	SettingProviderOrder        = "tts_provider_order"
	SettingFallbackEnabled      = "enable_tts_fallback"
)

// GormSettings reads overrides from the settings table.
type GormSettings struct {
	db *gorm.DB
}

func NewGormSettings(db *gorm.DB) *GormSettings {
	return &GormSettings{db: db}
}

// Snapshot reads the table once and applies every recognised key to base.
func (s *GormSettings) Snapshot(ctx context.Context, base config.Settings) (config.Settings, error) {
	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return base, fmt.Errorf("failed to load settings: %w", err)
	}
	values := lo.SliceToMap(rows, func(row models.Setting) (string, string) {
		return row.Key, row.Value
	})
	return ApplyOverrides(base, values)
}

// ApplyOverrides returns base with the recognised keys in values applied.
// Unknown keys are ignored; malformed values are an error.
func ApplyOverrides(base config.Settings, values map[string]string) (config.Settings, error) {
	out := base
	out.ProviderOrder = append([]string(nil), base.ProviderOrder...)

	if v, ok := values[SettingDefaultVoice]; ok && strings.TrimSpace(v) != "" {
		out.DefaultVoice = strings.TrimSpace(v)
	}
	if v, ok := values[SettingTranslationEnabled]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return base, fmt.Errorf("setting %s: %w", SettingTranslationEnabled, err)
		}
		out.TranslationEnabled = b
	}
	if v, ok := values[SettingFallbackEnabled]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return base, fmt.Errorf("setting %s: %w", SettingFallbackEnabled, err)
		}
		out.FallbackEnabled = b
	}
	if v, ok := values[SettingMaxDescriptionLength]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return base, fmt.Errorf("setting %s: invalid value %q", SettingMaxDescriptionLength, v)
		}
		out.MaxDescriptionLength = n
	}
	if v, ok := values[SettingProviderOrder]; ok {
		order := lo.Compact(lo.Map(strings.Split(v, ","), func(item string, _ int) string {
			return strings.ToLower(strings.TrimSpace(item))
		}))
		for _, p := range order {
			if p != config.ProviderOpenAI && p != config.ProviderGoogle {
				return base, fmt.Errorf("setting %s: unknown provider %q", SettingProviderOrder, p)
			}
		}
		if len(order) > 0 {
			out.ProviderOrder = lo.Uniq(order)
		}
	}
	return out, nil
}
