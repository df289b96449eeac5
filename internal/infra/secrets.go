package infra

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Secrets holds credentials read from the environment.
// An empty PrivateKey forces the live adapter into mock mode.
type Secrets struct {
	PrivateKey     string `env:"HYPERLIQUID_PRIVATE_KEY"`
	AccountAddress string `env:"HYPERLIQUID_ACCOUNT_ADDRESS"`

	// ConfirmRealMoney unlocks LIVE mode on mainnet.
	ConfirmRealMoney bool `env:"CONFIRM_REAL_MONEY"`
}

// LoadSecrets reads credentials from the process environment.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := cleanenv.ReadEnv(&s); err != nil {
		return Secrets{}, fmt.Errorf("failed to read secrets from env: %w", err)
	}
	return s, nil
}

// HasPrivateKey reports whether live trading credentials are present.
func (s Secrets) HasPrivateKey() bool {
	return s.PrivateKey != ""
}

// String never prints the key.
func (s Secrets) String() string {
	key := "unset"
	if s.HasPrivateKey() {
		key = "set"
	}
	return fmt.Sprintf("Secrets{private_key: %s, account: %q}", key, s.AccountAddress)
}
