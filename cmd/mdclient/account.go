package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"miden-client/core/domain"
	"miden-client/core/ids"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "create or inspect locally tracked accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "track a new account with a freshly derived signing key",
	Args:  cobra.NoArgs,
	RunE:  handleAccountCreate,
}

var accountShowCmd = &cobra.Command{
	Use:   "show [account-id-hex]",
	Short: "print a tracked account's header",
	Args:  cobra.ExactArgs(1),
	RunE:  handleAccountShow,
}

func parseAccountID(h string) (ids.AccountID, error) {
	var a ids.AccountID
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != len(a) {
		return a, errors.New("invalid account id: expected 32 hex characters")
	}
	copy(a[:], b)
	return a, nil
}

func handleAccountCreate(cmd *cobra.Command, _ []string) error {
	storageMode, _ := cmd.Flags().GetString("storage")

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	var id ids.AccountID
	if _, err := rand.Read(id[:]); err != nil {
		return fmt.Errorf("mdclient: generate account id: %w", err)
	}

	if _, err := c.Keystore().NewKeyPair(id); err != nil {
		return fmt.Errorf("mdclient: derive signing key: %w", err)
	}

	var mode domain.AccountStorageMode
	switch storageMode {
	case "public":
		mode = domain.StorageModePublic
	case "network":
		mode = domain.StorageModeNetwork
	default:
		mode = domain.StorageModePrivate
	}

	rec := &domain.AccountRecord{
		Account: domain.Account{
			Header:      domain.AccountHeader{ID: id},
			StorageMode: mode,
		},
		UpdatedAt: time.Now(),
	}
	if err := c.Store().CreateAccount(rec); err != nil {
		return fmt.Errorf("mdclient: create account: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created account %s (%s)\n", id, mode)
	return nil
}

func handleAccountShow(cmd *cobra.Command, args []string) error {
	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	header, err := c.Store().GetAccountHeader(id)
	if err != nil {
		return fmt.Errorf("mdclient: get account: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "id=%s nonce=%d commitment=%s\n", id, header.Nonce, header.Commitment())
	return nil
}

func init() {
	accountCreateCmd.Flags().String("storage", "private", "storage mode: private|public|network")
	accountCmd.AddCommand(accountCreateCmd, accountShowCmd)
}

// RegisterAccount wires the account command tree onto root.
func RegisterAccount(root *cobra.Command) { root.AddCommand(accountCmd) }
