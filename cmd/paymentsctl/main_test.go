package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/payments/internal/core/signature"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestSign_FromStdin(t *testing.T) {
	body := `{"amount":"150.00"}`

	out, err := run(t, body, "sign", "--secret", "s3cr3t", "--path", "/v1/checkouts")
	require.NoError(t, err)
	assert.Equal(t, signature.NewSigner("s3cr3t").SignRequest("/v1/checkouts", []byte(body)), out)
}

func TestSign_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o600))

	out, err := run(t, "", "sign", path, "--secret", "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, signature.NewSigner("s3cr3t").SignRequest("/v1/checkouts", []byte(`{"a":1}`)), out)
}

func TestSign_RequiresSecret(t *testing.T) {
	t.Setenv("GATEWAY_SECRET", "")

	_, err := run(t, "{}", "sign")
	assert.ErrorContains(t, err, "secret is required")
}

func TestVerify(t *testing.T) {
	body := `{"externalTransactionId":"ORDER-1-1","responseCode":"00"}`
	sig := signature.Sign([]byte("whsec"), []byte(body))

	out, err := run(t, body, "verify", "--secret", "whsec", "-s", sig)
	require.NoError(t, err)
	assert.Equal(t, "signature valid", out)

	_, err = run(t, body+" ", "verify", "--secret", "whsec", "-s", sig)
	assert.ErrorContains(t, err, "does not match")
}

func TestVerify_SecretFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_SECRET", "whsec")
	body := `{}`

	_, err := run(t, body, "verify", "-s", signature.Sign([]byte("whsec"), []byte(body)))
	assert.NoError(t, err)
}
