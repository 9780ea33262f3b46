// paymentsctl is the operator tool for the payments service: it signs and
// verifies gateway payloads and runs schema migrations.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ledgerworks/payments/config"
	"github.com/ledgerworks/payments/internal/adapters/gateway"
	"github.com/ledgerworks/payments/internal/adapters/repository"
	"github.com/ledgerworks/payments/internal/core/signature"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paymentsctl",
		Short:         "Operator tooling for the payments service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("secret", "", "gateway shared secret (default $GATEWAY_SECRET)")

	root.AddCommand(signCmd())
	root.AddCommand(verifyCmd())
	root.AddCommand(migrateCmd())

	return root
}

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [body-file]",
		Short: "Sign an outbound request body as the gateway expects it",
		Long: `Sign an outbound request body. The signed payload is the escaped
concatenation of the request path and the body. Reads stdin when no file is given.

Examples:
  paymentsctl sign request.json --secret s3cr3t
  cat request.json | paymentsctl sign --path /v1/checkouts`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := secretFlag(cmd)
			if err != nil {
				return err
			}
			body, err := readBody(cmd, args)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("path")

			fmt.Fprintln(cmd.OutOrStdout(), signature.NewSigner(secret).SignRequest(path, body))
			return nil
		},
	}

	cmd.Flags().String("path", gateway.CheckoutPath, "request URL path included in the signature")

	return cmd
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [body-file]",
		Short: "Verify a webhook signature against the raw callback body",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := secretFlag(cmd)
			if err != nil {
				return err
			}
			sig, _ := cmd.Flags().GetString("signature")
			if sig == "" {
				return fmt.Errorf("--signature is required")
			}
			body, err := readBody(cmd, args)
			if err != nil {
				return err
			}

			if !signature.NewSigner(secret).VerifyBody(body, sig) {
				return fmt.Errorf("signature does not match")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return nil
		},
	}

	cmd.Flags().StringP("signature", "s", "", "value of the X-Signature header")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payments schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := repository.Connect(cfg.Database.DSN(), log)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer func() { _ = repository.Close(db) }()

			if err := repository.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func secretFlag(cmd *cobra.Command) (string, error) {
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("GATEWAY_SECRET")
	}
	if secret == "" {
		return "", fmt.Errorf("a secret is required: pass --secret or set GATEWAY_SECRET")
	}
	return secret, nil
}

func readBody(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
