package domain

import "fmt"

// Family identifies the wire protocol a provider speaks.
type Family string

const (
	// FamilyOpenAI is any OpenAI-compatible /chat/completions endpoint.
	FamilyOpenAI Family = "openai"

	// FamilyAzure is Azure OpenAI, addressed by deployment name and api-version.
	FamilyAzure Family = "azure"

	// FamilyOllama is a local Ollama server using /api/chat.
	FamilyOllama Family = "ollama"

	// FamilyGemini is Google Gemini generateContent.
	FamilyGemini Family = "gemini"
)

// Families lists every supported family.
var Families = []Family{FamilyOpenAI, FamilyAzure, FamilyOllama, FamilyGemini}

// IsValid reports whether f is a supported family.
func (f Family) IsValid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// DefaultAuthMode returns the auth mode a family uses when none is configured.
func (f Family) DefaultAuthMode() AuthMode {
	switch f {
	case FamilyOpenAI:
		return AuthBearer
	case FamilyAzure, FamilyGemini:
		return AuthAPIKey
	default:
		return AuthNone
	}
}

// AuthMode describes how the credential is attached to outbound requests.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBearer AuthMode = "bearer"

	// AuthAPIKey sends the credential in the family's API key header.
	AuthAPIKey AuthMode = "api-key"
)

// IsValid reports whether m is a supported auth mode.
func (m AuthMode) IsValid() bool {
	switch m {
	case AuthNone, AuthBearer, AuthAPIKey:
		return true
	default:
		return false
	}
}

// ProviderConfig represents one configured upstream provider.
type ProviderConfig struct {
	// Name is the unique key clients use in the provider field.
	Name string `json:"name" mapstructure:"name"`

	// Family selects the adapter implementation.
	Family Family `json:"family" mapstructure:"family"`

	// BaseURL is the root endpoint of the provider API.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// AuthMode selects how Credential is sent.
	AuthMode AuthMode `json:"auth_mode" mapstructure:"auth_mode"`

	// Credential is the secret for AuthBearer and AuthAPIKey. Never serialized.
	Credential string `json:"-" mapstructure:"credential"`

	// APIVersion is the api-version query parameter for FamilyAzure.
	APIVersion string `json:"api_version,omitempty" mapstructure:"api_version"`
}

// Validate checks that the provider has everything its family needs.
func (p ProviderConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if !p.Family.IsValid() {
		return fmt.Errorf("provider %q: family %q is invalid", p.Name, p.Family)
	}
	if p.BaseURL == "" {
		return fmt.Errorf("provider %q: base_url is required", p.Name)
	}
	if !p.AuthMode.IsValid() {
		return fmt.Errorf("provider %q: auth_mode %q is invalid, must be one of: none, bearer, api-key", p.Name, p.AuthMode)
	}
	if p.AuthMode != AuthNone && p.Credential == "" {
		return fmt.Errorf("provider %q: credential is required for auth_mode %q", p.Name, p.AuthMode)
	}
	return nil
}
