package config

import "strings"

// ModelID is a parsed backend identifier of the form "<provider>:<model>".
type ModelID struct {
	Provider string
	Model    string
}

// String returns the canonical "<provider>:<model>" form.
func (id ModelID) String() string { return id.Provider + ":" + id.Model }

// ParseModelID splits a backend identifier on its first colon. Both the
// provider and the model segment must be non-empty; the model segment is
// passed through unmodified (it may itself contain colons, e.g. "ollama:llama3:8b").
func ParseModelID(s string) (ModelID, error) {
	provider, model, ok := strings.Cut(s, ":")
	if !ok {
		return ModelID{}, NewConfigError("model", s, "expected format is 'provider:model_name'")
	}

	if provider == "" || model == "" {
		return ModelID{}, NewConfigError("model", s, "both provider and model_name must be specified")
	}

	return ModelID{Provider: provider, Model: model}, nil
}
