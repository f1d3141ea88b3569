package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrConfiguration marks a missing or unparseable service-account secret.
// Surfaced to webhook callers as a 500-class response.
var ErrConfiguration = errors.New("invalid service configuration")

// ServiceAccount is the Google service-account identity used to mint bearer
// tokens for the push-delivery API. Field names match the JSON key file that
// the Cloud console exports.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
}

// LoadServiceAccount reads the service account from the configured file path,
// or from the inline JSON value when no file is set.
func LoadServiceAccount(cfg *Config) (*ServiceAccount, error) {
	raw := []byte(cfg.ServiceAccountJSON)
	if cfg.ServiceAccountFile != "" {
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, cfg.ServiceAccountFile, err)
		}
		raw = data
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("%w: parsing service account: %v", ErrConfiguration, err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" || sa.ProjectID == "" {
		return nil, fmt.Errorf("%w: service account must have client_email, private_key and project_id", ErrConfiguration)
	}

	return &sa, nil
}
