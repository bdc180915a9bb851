package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "zkregistry/internal/jwt_token"
	"zkregistry/internal/oracle"
	"zkregistry/internal/platform/config"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an oracle signing seed",
		Long:  `Generate a random oracle seed for ORACLE_SEED and print the public key results will be signed with.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := oracle.GenerateSeed(rand.Reader)
			if err != nil {
				return err
			}
			signer, err := oracle.NewSigner(seed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ORACLE_SEED=%s\n", hex.EncodeToString(seed))
			fmt.Fprintf(out, "public_key=%s\n", signer.PublicKey())
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	cfg := config.FromEnv()
	var (
		subject string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token",
		Long:  `Mint a token signed with JWT_SIGNING_KEY for calling protected API routes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, tokenAudience)
			tok, err := jwt.GenerateAccessToken(subject, scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject, e.g. the operator's email")
	cmd.Flags().StringVar(&scope, "scope", "verify", "Space-separated scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
