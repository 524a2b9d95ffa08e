package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGrant/keyring"
	"github.com/MrEthical07/goGrant/token"
)

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing keys in the keyring",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Generate a signing key and add it as the newest key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runKeysAdd(cmd.Context(), cmd.OutOrStdout())
		},
	}
	add.Flags().String("alg", "HS256", "key algorithm (HS256, HS384, HS512, EdDSA)")
	add.Flags().String("id", "", "key id (default: random uuid)")
	add.Flags().Bool("show-secret", false, "print the generated secret in base64")

	list := &cobra.Command{
		Use:   "list",
		Short: "List keys, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runKeysList(cmd.Context(), cmd.OutOrStdout())
		},
	}

	retire := &cobra.Command{
		Use:   "retire <id>",
		Short: "Retire a key so it no longer signs or verifies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runKeysRetire(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(add, list, retire)
	return cmd
}

func (a *app) runKeysAdd(ctx context.Context, out io.Writer) error {
	alg, err := token.ParseAlgorithm(a.v.GetString("alg"))
	if err != nil {
		return err
	}

	b, err := a.openKeyring(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.static {
		return errReadOnlyKeyring
	}

	record, err := keyring.Generate(alg)
	if err != nil {
		return err
	}
	if id := a.v.GetString("id"); id != "" {
		record.ID = id
	}

	stored, err := b.store.Add(ctx, record)
	if err != nil {
		return err
	}
	a.logger.Info("key added", zap.String("id", stored.ID), zap.String("algorithm", stored.Algorithm.String()))

	fmt.Fprintln(out, stored.ID)
	if a.v.GetBool("show-secret") {
		fmt.Fprintln(out, base64.StdEncoding.EncodeToString(stored.Secret))
	}
	return nil
}

func (a *app) runKeysList(ctx context.Context, out io.Writer) error {
	b, err := a.openKeyring(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	records, err := b.store.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tALGORITHM\tCREATED\tSTATUS")
	for _, r := range records {
		status := "active"
		if !r.Active() {
			status = "retired " + r.RetiredAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Algorithm, r.CreatedAt.UTC().Format(time.RFC3339), status)
	}
	return tw.Flush()
}

func (a *app) runKeysRetire(ctx context.Context, id string) error {
	b, err := a.openKeyring(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.static {
		return errReadOnlyKeyring
	}

	if err := b.store.Retire(ctx, id); err != nil {
		return err
	}
	a.logger.Info("key retired", zap.String("id", id))
	return nil
}
