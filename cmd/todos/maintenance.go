package main

import (
	"encoding/json"
	"fmt"

	"github.com/slackmgr/todos/task"
	"github.com/spf13/cobra"
)

func newCheckSchemaCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-schema",
		Short: "Create the store schema if missing and verify its layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openStore(ctx, rootOpts.cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore(ctx) }()

			if err := store.Init(ctx, false); err != nil {
				return fmt.Errorf("schema check failed for %s store: %w", rootOpts.cfg.StoreBackend, err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s store schema is valid\n", rootOpts.cfg.StoreBackend)

			return err
		},
	}
}

func newScanCommand(rootOpts *rootOptions) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Dump every task as JSON",
		Long: `Read the whole task table and write it to stdout as a JSON array.

This is a full table scan and is meant for maintenance only. With --public
only tasks without an owner are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openStore(ctx, rootOpts.cfg, rootOpts.logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore(ctx) }()

			var tasks []*task.Task

			if public {
				tasks, err = store.ScanPublicTasks(ctx)
			} else {
				tasks, err = store.ScanTasks(ctx)
			}

			if err != nil {
				return err
			}

			if tasks == nil {
				tasks = []*task.Task{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(tasks)
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "only tasks without an owner")

	return cmd
}
