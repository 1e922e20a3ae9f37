package config

import (
	"os"
	"strings"
)

// CredentialVar is the environment variable holding the completion service key.
const CredentialVar = "GROQ_API_KEY"

// EnvCredential reads the completion credential from the process environment
// each time it is asked, so a key added to the environment is picked up
// without rebuilding the controller.
type EnvCredential struct {
	Var string
}

// Credential implements chat.CredentialSource.
func (e EnvCredential) Credential() (string, bool) {
	value := strings.TrimSpace(os.Getenv(e.Name()))
	return value, value != ""
}

// Name implements chat.CredentialSource.
func (e EnvCredential) Name() string {
	if e.Var == "" {
		return CredentialVar
	}
	return e.Var
}
