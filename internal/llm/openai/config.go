package openai

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// Provider is a resolved chat-completion endpoint and credential.
type Provider struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

var (
	zhipu = Provider{
		Name:    "zhipu",
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4-flash",
	}
	deepseek = Provider{
		Name:    "deepseek",
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	}
)

// placeholderKeys are sample values shipped in env templates.
var placeholderKeys = map[string]struct{}{
	"your_deepseek_api_key_here": {},
	"your_zhipu_api_key_here":    {},
	"your_api_key_here":          {},
}

func usableKey(k string) bool {
	k = strings.TrimSpace(k)
	if k == "" {
		return false
	}
	_, placeholder := placeholderKeys[k]
	return !placeholder
}

// ResolveProvider picks the provider from the configured credentials. Zhipu
// wins when both are set. ok is false when neither key is usable.
func ResolveProvider(cfg common.LLMConfig) (Provider, bool) {
	var p Provider
	switch {
	case usableKey(cfg.ZhipuAPIKey):
		p = zhipu
		p.APIKey = strings.TrimSpace(cfg.ZhipuAPIKey)
	case usableKey(cfg.DeepSeekAPIKey):
		p = deepseek
		p.APIKey = strings.TrimSpace(cfg.DeepSeekAPIKey)
	default:
		return Provider{}, false
	}
	if cfg.BaseURL != "" {
		p.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		p.Model = cfg.Model
	}
	return p, true
}

// Config for the chat-completion client.
type Config struct {
	Provider    Provider      // zero value means no credential configured
	Temperature float32       // default 0.1
	Timeout     time.Duration // http client timeout
}

// ConfigFrom builds a client Config from application settings.
func ConfigFrom(cfg common.LLMConfig) Config {
	p, _ := ResolveProvider(cfg)
	return Config{
		Provider:    p,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}
}
