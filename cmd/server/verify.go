package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/platform/config"
	"zkregistry/internal/platform/logger"
	"zkregistry/internal/verification"
)

// offlineFlags are the settings shared by the one-shot commands.
func offlineFlags(cmd *cobra.Command, cfg *config.Config, entityType *string) {
	cmd.Flags().StringVarP(entityType, "type", "t", "", "Entity type (gleif, corporate_registration, exim)")
	cmd.Flags().BoolVar(&cfg.Sources.Static, "static-sources", cfg.Sources.Static, "Use built-in sample records")
	cmd.Flags().BoolVar(&cfg.Verification.ProveEnabled, "prove", false, "Generate Groth16 proofs")
	cmd.Flags().StringVar(&cfg.Log.Level, "log-level", "warn", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("type")
}

func newVerifyCmd() *cobra.Command {
	cfg := config.FromEnv()
	var entityType string

	cmd := &cobra.Command{
		Use:   "verify IDENTIFIER...",
		Short: "Verify a batch of entities and print the result",
		Example: `  zkregistry verify --type gleif --static-sources "ACME CORP" "GLOBEX LTD"
  zkregistry verify --type exim 0305012345`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := models.ParseEntityType(entityType)
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, "text")
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.verification.VerifyBatch(cmd.Context(), verification.BatchRequest{
				EntityType:  t,
				Identifiers: args,
			})
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d entities failed verification", result.Failed, len(result.Results))
			}
			return nil
		},
	}
	offlineFlags(cmd, &cfg, &entityType)
	return cmd
}

func newDiscloseCmd() *cobra.Command {
	cfg := config.FromEnv()
	var (
		entityType string
		fieldNames []string
	)

	cmd := &cobra.Command{
		Use:     "disclose IDENTIFIER",
		Short:   "Reveal selected fields of an entity under its signed root",
		Example: `  zkregistry disclose --type gleif --static-sources --fields lei,entity_status "ACME CORP"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := models.ParseEntityType(entityType)
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, "text")
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.verification.Disclose(cmd.Context(), verification.DisclosureRequest{
				EntityType: t,
				Identifier: args[0],
				Fields:     fieldNames,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	offlineFlags(cmd, &cfg, &entityType)
	cmd.Flags().StringSliceVarP(&fieldNames, "fields", "f", nil, "Field names to reveal")
	_ = cmd.MarkFlagRequired("fields")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
