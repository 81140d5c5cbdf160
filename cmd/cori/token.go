package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cori-do/cori-sub001/internal/token"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint, attenuate, inspect and verify capability tokens",
}

var (
	mintRole          string
	mintTableAccess   []string
	mintBlockedTables []string
	mintMaxRows       int
	mintPrivateKeyHex string
)

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a base role token (block 0, no tenant)",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := token.KeypairFromHex(mintPrivateKeyHex)
		if err != nil {
			return fmt.Errorf("parse private key: %w", err)
		}
		authority := token.NewAuthority(kp)
		encoded, err := authority.MintRole(token.RoleClaims{
			Role:          mintRole,
			TableAccess:   mintTableAccess,
			BlockedTables: mintBlockedTables,
			MaxRows:       mintMaxRows,
		})
		if err != nil {
			return err
		}
		fmt.Println(encoded)
		return nil
	},
}

var (
	attenuateTenant        string
	attenuateSource        string
	attenuateExpiresInSecs int64
	attenuatePrivateKeyHex string
)

var tokenAttenuateCmd = &cobra.Command{
	Use:   "attenuate <base-token>",
	Short: "Attenuate a role token into a tenant-scoped agent token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := token.KeypairFromHex(attenuatePrivateKeyHex)
		if err != nil {
			return fmt.Errorf("parse private key: %w", err)
		}
		authority := token.NewAuthority(kp)
		var expiresAt *time.Time
		if attenuateExpiresInSecs > 0 {
			t := time.Now().Add(time.Duration(attenuateExpiresInSecs) * time.Second)
			expiresAt = &t
		}
		encoded, err := authority.Attenuate(args[0], attenuateTenant, expiresAt, attenuateSource)
		if err != nil {
			return err
		}
		fmt.Println(encoded)
		return nil
	},
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Print a token's block structure without verifying signatures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inspection, err := token.Inspect(args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(inspection, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var tokenVerifyPublicKeyHex string

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a token's signature chain and print its extracted facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := token.PublicKeyFromHex(tokenVerifyPublicKeyHex)
		if err != nil {
			return fmt.Errorf("parse public key: %w", err)
		}
		verifier := token.NewVerifier(pub)
		vt, err := verifier.Verify(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("role:        %s\n", vt.Role)
		if vt.Tenant != nil {
			fmt.Printf("tenant:      %s\n", *vt.Tenant)
		} else {
			fmt.Printf("tenant:      (none — role token)\n")
		}
		fmt.Printf("blocks:      %d\n", vt.BlockCount)
		fmt.Printf("attenuated:  %t\n", vt.IsAttenuated())
		fmt.Printf("fingerprint: %s\n", token.Fingerprint(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenMintCmd, tokenAttenuateCmd, tokenInspectCmd, tokenVerifyCmd)

	tokenMintCmd.Flags().StringVar(&mintRole, "role", "", "role name to embed (required)")
	tokenMintCmd.Flags().StringSliceVar(&mintTableAccess, "table", nil, "table the role may access (repeatable)")
	tokenMintCmd.Flags().StringSliceVar(&mintBlockedTables, "blocked-table", nil, "table the role is explicitly denied (repeatable)")
	tokenMintCmd.Flags().IntVar(&mintMaxRows, "max-rows", 0, "row cap fact, 0 means unset")
	tokenMintCmd.Flags().StringVar(&mintPrivateKeyHex, "private-key", "", "hex-encoded Ed25519 private seed (required)")
	tokenMintCmd.MarkFlagRequired("role")
	tokenMintCmd.MarkFlagRequired("private-key")

	tokenAttenuateCmd.Flags().StringVar(&attenuateTenant, "tenant", "", "tenant to scope the token to (required)")
	tokenAttenuateCmd.Flags().StringVar(&attenuateSource, "source", "", "optional annotation naming who requested the attenuation")
	tokenAttenuateCmd.Flags().Int64Var(&attenuateExpiresInSecs, "expires-in", 0, "seconds until expiry, 0 means no expiry check")
	tokenAttenuateCmd.Flags().StringVar(&attenuatePrivateKeyHex, "private-key", "", "hex-encoded Ed25519 private seed (required)")
	tokenAttenuateCmd.MarkFlagRequired("tenant")
	tokenAttenuateCmd.MarkFlagRequired("private-key")

	tokenVerifyCmd.Flags().StringVar(&tokenVerifyPublicKeyHex, "public-key", "", "hex-encoded Ed25519 public key (required)")
	tokenVerifyCmd.MarkFlagRequired("public-key")
}
