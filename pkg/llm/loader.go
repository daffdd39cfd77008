package llm

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"promptgate/pkg/config"
)

var (
	// ErrUnknownProvider is returned when no factory matches the provider type.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrMissingAPIKey is returned when no credential source yields a key.
	ErrMissingAPIKey = errors.New("missing api key")
)

// Request describes a provider/model pair as a caller asks for it.
// Options are layered Defaults, then the provider's config options, then
// Options itself.
type Request struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Defaults Options
	Options  Options
}

// APIKeyEnvVar returns the environment variable consulted for a provider,
// e.g. "openai" -> "OPENAI_API_KEY".
func APIKeyEnvVar(provider string) string {
	name := strings.ToUpper(strings.ReplaceAll(provider, "-", "_"))
	return name + "_API_KEY"
}

// ResolveAPIKey picks the first non-empty key from the request, the
// environment, then the config file.
func ResolveAPIKey(provider, requestKey string, cfg *config.Config) string {
	if requestKey != "" {
		return requestKey
	}
	if key := os.Getenv(APIKeyEnvVar(provider)); key != "" {
		return key
	}
	if pc, ok := cfg.Provider(provider); ok && len(pc.APIKeys) > 0 {
		return pc.APIKeys[0]
	}
	return ""
}

// QualifiedModel returns "provider/model" unless model is already qualified.
func QualifiedModel(provider, model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	return provider + "/" + model
}

// BareModel strips a leading "provider/" qualifier.
func BareModel(provider, model string) string {
	if rest, ok := strings.CutPrefix(model, provider+"/"); ok {
		return rest
	}
	return model
}

// Resolve merges a request with the config file into a ProviderConfig.
func (r *Registry) Resolve(req Request, cfg *config.Config) (ProviderConfig, error) {
	pc, _ := cfg.Provider(req.Provider)

	typ := pc.Type
	if typ == "" {
		typ = req.Provider
	}
	if _, ok := r.Get(typ); !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, typ)
	}

	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = pc.BaseURL
	}

	configured, err := DecodeOptions(pc.Options)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("provider %s options: %w", req.Provider, err)
	}
	opts := req.Defaults.Merge(configured).Merge(req.Options)

	apiKey := ResolveAPIKey(req.Provider, req.APIKey, cfg)
	if apiKey == "" && !r.Keyless(typ) {
		return ProviderConfig{}, fmt.Errorf("%w: set api_key or %s", ErrMissingAPIKey, APIKeyEnvVar(req.Provider))
	}

	return ProviderConfig{
		Name:    req.Provider,
		Type:    typ,
		Model:   BareModel(req.Provider, req.Model),
		APIKey:  apiKey,
		BaseURL: baseURL,
		Options: opts,
	}, nil
}

// New resolves the request and builds a client with the matching factory.
func (r *Registry) New(req Request, cfg *config.Config, system *config.SystemConfig) (LLMClient, ProviderConfig, error) {
	pc, err := r.Resolve(req, cfg)
	if err != nil {
		return nil, ProviderConfig{}, err
	}
	factory, _ := r.Get(pc.Type)
	client, err := factory.Create(pc, system)
	if err != nil {
		return nil, ProviderConfig{}, fmt.Errorf("create %s client: %w", pc.Type, err)
	}
	slog.Info("LLM client initialized", "provider", pc.Name, "type", pc.Type, "model", pc.Model)
	return client, pc, nil
}
