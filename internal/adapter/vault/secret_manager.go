package vault

import (
	"github.com/hashicorp/vault/api"
)

type SecretManager struct {
	client *api.Client
}

func NewSecretManager(address, token string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// GetDatabaseDSN reads the bill-ledger's Postgres connection string
// from secret/data/database, overriding the DatabaseConfig.URL value.
func (sm *SecretManager) GetDatabaseDSN() (string, error) {
	secret, err := sm.client.Logical().Read("secret/data/database")
	if err != nil {
		return "", err
	}

	data := secret.Data["data"].(map[string]interface{})
	return data["connection_string"].(string), nil
}

// GetJWTSigningKey reads the admin-dashboard JWT signing secret from
// secret/data/jwt, overriding the JWTConfig.Secret value.
func (sm *SecretManager) GetJWTSigningKey() (string, error) {
	secret, err := sm.client.Logical().Read("secret/data/jwt")
	if err != nil {
		return "", err
	}

	data := secret.Data["data"].(map[string]interface{})
	return data["signing_key"].(string), nil
}
