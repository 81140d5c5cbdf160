package main

import (
	"fmt"

	"github.com/cori-do/cori-sub001/internal/token"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the Token Authority's signing keypair",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new Ed25519 signing keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := token.GenerateKeypair()
		if err != nil {
			return err
		}
		fmt.Printf("BISCUIT_PRIVATE_KEY=%s\n", kp.PrivateSeedHex())
		fmt.Printf("BISCUIT_PUBLIC_KEY=%s\n", kp.PublicHex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)
}
