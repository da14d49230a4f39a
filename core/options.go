package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvRawConfigLoader reads configuration from ORDERVERIFY_* environment
// variables into the nested raw map cfgx expects.
type EnvRawConfigLoader struct {
	// Lookup defaults to os.LookupEnv; tests inject their own.
	Lookup func(key string) (string, bool)
}

func (l EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := map[string]any{}
	setString := func(target map[string]any, key, envKey string) {
		if value, ok := lookup(envKey); ok && strings.TrimSpace(value) != "" {
			target[key] = strings.TrimSpace(value)
		}
	}

	setString(raw, "service_name", "ORDERVERIFY_SERVICE_NAME")
	setString(raw, "environment", "ORDERVERIFY_ENVIRONMENT")
	setString(raw, "listen_addr", "ORDERVERIFY_LISTEN_ADDR")

	webhook := map[string]any{}
	setString(webhook, "secret", "ORDERVERIFY_WEBHOOK_SECRET")
	if value, ok := lookup("ORDERVERIFY_WEBHOOK_SKIP_VERIFICATION"); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse ORDERVERIFY_WEBHOOK_SKIP_VERIFICATION: %w", err)
		}
		webhook["skip_verification"] = parsed
	}
	if len(webhook) > 0 {
		raw["webhook"] = webhook
	}

	notifier := map[string]any{}
	setString(notifier, "url", "ORDERVERIFY_NOTIFIER_URL")
	if value, ok := lookup("ORDERVERIFY_NOTIFIER_TIMEOUT_SECONDS"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse ORDERVERIFY_NOTIFIER_TIMEOUT_SECONDS: %w", err)
		}
		notifier["timeout_seconds"] = parsed
	}
	if len(notifier) > 0 {
		raw["notifier"] = notifier
	}

	storage := map[string]any{}
	setString(storage, "driver", "ORDERVERIFY_STORAGE_DRIVER")
	setString(storage, "dsn", "ORDERVERIFY_STORAGE_DSN")
	if len(storage) > 0 {
		raw["storage"] = storage
	}

	phone := map[string]any{}
	setString(phone, "default_country_code", "ORDERVERIFY_PHONE_COUNTRY_CODE")
	if len(phone) > 0 {
		raw["phone"] = phone
	}

	retention := map[string]any{}
	if value, ok := lookup("ORDERVERIFY_RETENTION_DAYS"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("core: parse ORDERVERIFY_RETENTION_DAYS: %w", err)
		}
		retention["days"] = parsed
	}
	if len(retention) > 0 {
		raw["retention"] = retention
	}

	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, loaded configuration, and runtime
// overrides as layered option scopes: defaults < config < runtime.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.Environment) != "" {
		layer["environment"] = cfg.Environment
	}
	if includeZero || strings.TrimSpace(cfg.ListenAddr) != "" {
		layer["listen_addr"] = cfg.ListenAddr
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.Secret) != "" || cfg.Webhook.SkipVerification {
		layer["webhook"] = map[string]any{
			"secret":            cfg.Webhook.Secret,
			"skip_verification": cfg.Webhook.SkipVerification,
		}
	}
	if includeZero || strings.TrimSpace(cfg.Notifier.URL) != "" || cfg.Notifier.TimeoutSeconds > 0 {
		layer["notifier"] = map[string]any{
			"url":             cfg.Notifier.URL,
			"timeout_seconds": cfg.Notifier.TimeoutSeconds,
		}
	}
	if includeZero || strings.TrimSpace(cfg.Storage.Driver) != "" || strings.TrimSpace(cfg.Storage.DSN) != "" {
		layer["storage"] = map[string]any{
			"driver": cfg.Storage.Driver,
			"dsn":    cfg.Storage.DSN,
		}
	}
	if includeZero || strings.TrimSpace(cfg.Phone.DefaultCountryCode) != "" {
		layer["phone"] = map[string]any{
			"default_country_code": cfg.Phone.DefaultCountryCode,
		}
	}
	if includeZero || cfg.Retention.Days > 0 {
		layer["retention"] = map[string]any{
			"days": cfg.Retention.Days,
		}
	}
	return layer
}
