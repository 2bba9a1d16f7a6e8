package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "VIPRA"

// Load reads config.yaml from ".", "./configs" (or the explicit file), merges
// config.<appEnv>.yaml when present, and applies VIPRA_* overrides such as
// VIPRA_REASONING_MODEL.
func Load(file, appEnv string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}
		if appEnv != "" {
			v.SetConfigName("config." + appEnv)
			if err := v.MergeInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("error reading config.%s: %w", appEnv, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that no
// config file mentions.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("reasoning.provider", d.Reasoning.Provider)
	v.SetDefault("reasoning.model", d.Reasoning.Model)
	v.SetDefault("reasoning.base_url", d.Reasoning.BaseURL)
	v.SetDefault("reasoning.max_tokens", d.Reasoning.MaxTokens)
	v.SetDefault("reasoning.temperature", d.Reasoning.Temperature)
	v.SetDefault("reasoning.timeout", d.Reasoning.Timeout)
	v.SetDefault("reasoning.max_image_width", d.Reasoning.MaxImageWidth)
	v.SetDefault("reasoning.log_http", d.Reasoning.LogHTTP)
	v.SetDefault("reasoning.api_key_env", d.Reasoning.APIKeyEnv)

	v.SetDefault("grounding.threshold", d.Grounding.Threshold)
	v.SetDefault("grounding.top_k", d.Grounding.TopK)
	v.SetDefault("grounding.text_weight", d.Grounding.TextWeight)
	v.SetDefault("grounding.resource_id_weight", d.Grounding.ResourceIDWeight)
	v.SetDefault("grounding.type_weight", d.Grounding.TypeWeight)
	v.SetDefault("grounding.fuzzy_weight", d.Grounding.FuzzyWeight)
	v.SetDefault("grounding.fuzzy_min_ratio", d.Grounding.FuzzyMinRatio)
	v.SetDefault("grounding.action_bonus", d.Grounding.ActionBonus)
	v.SetDefault("grounding.state_bonus", d.Grounding.StateBonus)
	v.SetDefault("grounding.position_bonus", d.Grounding.PositionBonus)
	v.SetDefault("grounding.context_window", d.Grounding.ContextWindow)

	v.SetDefault("annotate.stroke_width", d.Annotate.StrokeWidth)
	v.SetDefault("annotate.label_max_runes", d.Annotate.LabelMaxRunes)

	v.SetDefault("analysis.min_phrase_len", d.Analysis.MinPhraseLen)
	v.SetDefault("verdict.degraded_confidence", d.Verdict.DegradedConfidence)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.console", d.Log.Console)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
}
