package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"miden-client/core/domain"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "build, prove, submit and apply transactions",
}

var txSendCmd = &cobra.Command{
	Use:   "send [account-id-hex]",
	Short: "run a transaction through the full Build/Execute/Prove/Submit/Apply lifecycle",
	Args:  cobra.ExactArgs(1),
	RunE:  handleTxSend,
}

var txPendingCmd = &cobra.Command{
	Use:   "pending [account-id-hex]",
	Short: "list locally pending transactions for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  handleTxPending,
}

func handleTxSend(cmd *cobra.Command, args []string) error {
	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}
	expirationDelta, _ := cmd.Flags().GetUint32("expiration")

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	tx, err := c.Tx.Run(context.Background(), domain.TransactionRequest{
		AccountID:       id,
		ExpirationDelta: expirationDelta,
	})
	if err != nil {
		return fmt.Errorf("mdclient: tx send: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied transaction %s (status=%s)\n", tx.ID.Short(), tx.Status)
	return nil
}

func handleTxPending(cmd *cobra.Command, args []string) error {
	id, err := parseAccountID(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	for _, tx := range c.Tx.Pending(id) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s status=%s\n", tx.ID.Short(), tx.Status)
	}
	return nil
}

func init() {
	txSendCmd.Flags().Uint32("expiration", 64, "blocks until the transaction expires unconfirmed")
	txCmd.AddCommand(txSendCmd, txPendingCmd)
}

// RegisterTx wires the tx command tree onto root.
func RegisterTx(root *cobra.Command) { root.AddCommand(txCmd) }
