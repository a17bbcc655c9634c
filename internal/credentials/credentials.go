package credentials

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/OldStager01/joyce/pkg/config"
	"github.com/OldStager01/joyce/pkg/models"
)

const ServiceName = "joyce"

var ErrPasswordNotFound = errors.New("monitoring password not found")

type KeyringStore struct {
	serviceName string
}

func NewKeyringStore(serviceName string) *KeyringStore {
	if serviceName == "" {
		serviceName = ServiceName
	}
	return &KeyringStore{serviceName: serviceName}
}

func (k *KeyringStore) Set(user, password string) error {
	return keyring.Set(k.serviceName, user, password)
}

func (k *KeyringStore) Get(user string) (string, error) {
	password, err := keyring.Get(k.serviceName, user)
	if err == nil {
		return password, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrPasswordNotFound
	}
	return "", err
}

func (k *KeyringStore) Delete(user string) error {
	err := keyring.Delete(k.serviceName, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrPasswordNotFound
	}
	return err
}

// Resolve picks the monitoring password: a plain config value wins, then the
// OS keyring when enabled, then the base64 encoded environment variable.
func Resolve(cfg config.ZabbixConfig, store *KeyringStore) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}

	if cfg.UseKeyring {
		password, err := store.Get(cfg.User)
		if err == nil {
			return password, nil
		}
		if !errors.Is(err, ErrPasswordNotFound) {
			return "", fmt.Errorf("failed to read keyring: %w", err)
		}
	}

	envName := cfg.PasswordEnv
	if envName == "" {
		envName = "JOYCE_PASSWORD"
	}
	encoded, ok := os.LookupEnv(envName)
	if !ok || strings.TrimSpace(encoded) == "" {
		return "", fmt.Errorf("%w: %v (set %s or zabbix.password)", models.ErrContractViolation, ErrPasswordNotFound, envName)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not valid base64: %v", models.ErrContractViolation, envName, err)
	}
	return string(decoded), nil
}
