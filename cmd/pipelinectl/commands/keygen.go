package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
)

// NewKeygenCommand prints a fresh SECRETPIPE_SECRET_KEY value.
func NewKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a 32-byte hex secret key for SECRETPIPE_SECRET_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := make([]byte, 32)
			defer memguard.WipeBytes(key)

			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("read random key: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
			return err
		},
	}
}
