package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"miden-client/core/domain"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "manage note-routing tags this client subscribes to",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <value>",
	Short: "subscribe to a tag value so sync imports notes tagged with it",
	Args:  cobra.ExactArgs(1),
	RunE:  handleTagAdd,
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <value>",
	Short: "unsubscribe from a tag value",
	Args:  cobra.ExactArgs(1),
	RunE:  handleTagRemove,
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "list subscribed tag values",
	Args:  cobra.NoArgs,
	RunE:  handleTagList,
}

func parseTagValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("mdclient: invalid tag value %q: %w", s, err)
	}
	return uint32(v), nil
}

func handleTagAdd(cmd *cobra.Command, args []string) error {
	label, _ := cmd.Flags().GetString("label")
	value, err := parseTagValue(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	if err := c.Store().AddTag(domain.Tag{Value: value, Label: label}); err != nil {
		return fmt.Errorf("mdclient: add tag: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "subscribed to tag %d\n", value)
	return nil
}

func handleTagRemove(cmd *cobra.Command, args []string) error {
	value, err := parseTagValue(args[0])
	if err != nil {
		return err
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	if err := c.Store().RemoveTag(domain.Tag{Value: value}); err != nil {
		return fmt.Errorf("mdclient: remove tag: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unsubscribed from tag %d\n", value)
	return nil
}

func handleTagList(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer c.Stop()

	tags, err := c.Store().ListTags()
	if err != nil {
		return fmt.Errorf("mdclient: list tags: %w", err)
	}
	for _, t := range tags {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", t.Value, t.Label)
	}
	return nil
}

func init() {
	tagAddCmd.Flags().String("label", "", "human-readable label for this tag")
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagListCmd)
}

// RegisterTag wires the tag command tree onto root.
func RegisterTag(root *cobra.Command) { root.AddCommand(tagCmd) }
