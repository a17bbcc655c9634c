package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/OldStager01/joyce/pkg/config"
	"github.com/OldStager01/joyce/pkg/models"
)

func TestResolve_PlainWins(t *testing.T) {
	t.Setenv("JOYCE_PASSWORD", "aWdub3JlZA==")

	password, err := Resolve(config.ZabbixConfig{User: "joyce", Password: "plain"}, NewKeyringStore(""))
	require.NoError(t, err)
	assert.Equal(t, "plain", password)
}

func TestResolve_Base64Env(t *testing.T) {
	t.Setenv("JOYCE_PASSWORD", "czNjcjN0")

	password, err := Resolve(config.ZabbixConfig{User: "joyce"}, NewKeyringStore(""))
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", password)
}

func TestResolve_CustomEnvName(t *testing.T) {
	t.Setenv("ZBX_PASS", "cGFzcw==")

	password, err := Resolve(config.ZabbixConfig{User: "joyce", PasswordEnv: "ZBX_PASS"}, NewKeyringStore(""))
	require.NoError(t, err)
	assert.Equal(t, "pass", password)
}

func TestResolve_Keyring(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("joyce-test")
	require.NoError(t, store.Set("joyce", "from-keyring"))

	password, err := Resolve(config.ZabbixConfig{User: "joyce", UseKeyring: true}, store)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", password)
}

func TestResolve_KeyringMissFallsBackToEnv(t *testing.T) {
	keyring.MockInit()
	t.Setenv("JOYCE_PASSWORD", "ZW52")

	password, err := Resolve(config.ZabbixConfig{User: "nobody", UseKeyring: true}, NewKeyringStore(""))
	require.NoError(t, err)
	assert.Equal(t, "env", password)
}

func TestResolve_Missing(t *testing.T) {
	t.Setenv("JOYCE_PASSWORD", "")

	_, err := Resolve(config.ZabbixConfig{User: "joyce"}, NewKeyringStore(""))
	assert.ErrorIs(t, err, models.ErrContractViolation)
}

func TestResolve_BadBase64(t *testing.T) {
	t.Setenv("JOYCE_PASSWORD", "not base64!")

	_, err := Resolve(config.ZabbixConfig{User: "joyce"}, NewKeyringStore(""))
	assert.ErrorIs(t, err, models.ErrContractViolation)
}

func TestKeyringStore_Delete(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("")

	assert.ErrorIs(t, store.Delete("joyce"), ErrPasswordNotFound)
	require.NoError(t, store.Set("joyce", "x"))
	require.NoError(t, store.Delete("joyce"))

	_, err := store.Get("joyce")
	assert.ErrorIs(t, err, ErrPasswordNotFound)
}
