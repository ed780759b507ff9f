package ai

// Model is one selectable model of a provider.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderInfo describes a provider for settings screens.
type ProviderInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Models []Model `json:"models"`
}

var catalog = []ProviderInfo{
	{
		ID:   "google",
		Name: "Google",
		Models: []Model{
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
			{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash-Lite"},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
		},
	},
	{
		ID:   "groq",
		Name: "Groq",
		Models: []Model{
			{ID: "openai/gpt-oss-120b", Name: "OpenAI GPT OSS 120B"},
			{ID: "moonshotai/kimi-k2-instruct-0905", Name: "Kimi K2 Instruct"},
		},
	},
}

// Catalog returns a copy of the supported providers in display order.
func Catalog() []ProviderInfo {
	out := make([]ProviderInfo, len(catalog))
	for i, p := range catalog {
		p.Models = append([]Model(nil), p.Models...)
		out[i] = p
	}
	return out
}

func LookupProvider(id string) (ProviderInfo, bool) {
	for _, p := range catalog {
		if p.ID == id {
			p.Models = append([]Model(nil), p.Models...)
			return p, true
		}
	}
	return ProviderInfo{}, false
}

func (p ProviderInfo) HasModel(id string) bool {
	for _, m := range p.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}
