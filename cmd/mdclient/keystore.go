package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"miden-client/keystore"
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "manage local signing keys",
}

var keystoreNewMnemonicCmd = &cobra.Command{
	Use:   "new-mnemonic",
	Short: "generate a fresh BIP-39 mnemonic for deriving signing keys",
	Args:  cobra.NoArgs,
	RunE:  handleKeystoreNewMnemonic,
}

var keystoreDeriveCmd = &cobra.Command{
	Use:   "derive [mnemonic...]",
	Short: "derive the ed25519 public key at the given index from a mnemonic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  handleKeystoreDerive,
}

func handleKeystoreNewMnemonic(cmd *cobra.Command, _ []string) error {
	bits, _ := cmd.Flags().GetInt("bits")
	mnemonic, err := keystore.NewMnemonic(bits)
	if err != nil {
		return fmt.Errorf("mdclient: generate mnemonic: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
	return nil
}

func handleKeystoreDerive(cmd *cobra.Command, args []string) error {
	index, _ := cmd.Flags().GetUint32("index")
	passphrase, _ := cmd.Flags().GetString("passphrase")

	mnemonic := ""
	for i, w := range args {
		if i > 0 {
			mnemonic += " "
		}
		mnemonic += w
	}

	seed, err := keystore.MnemonicSeed(mnemonic, passphrase)
	if err != nil {
		return fmt.Errorf("mdclient: derive seed: %w", err)
	}
	pub, _, err := keystore.DeriveEd25519FromSeed(seed, index)
	if err != nil {
		return fmt.Errorf("mdclient: derive key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(pub))
	return nil
}

func init() {
	keystoreNewMnemonicCmd.Flags().Int("bits", 128, "entropy bits (128|256)")
	keystoreDeriveCmd.Flags().Uint32("index", 0, "derivation index")
	keystoreDeriveCmd.Flags().String("passphrase", "", "optional BIP-39 passphrase")
	keystoreCmd.AddCommand(keystoreNewMnemonicCmd, keystoreDeriveCmd)
}

// RegisterKeystore wires the keystore command tree onto root.
func RegisterKeystore(root *cobra.Command) { root.AddCommand(keystoreCmd) }
