package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorewheel/internal/activity"
	"github.com/dukerupert/chorewheel/internal/archive"
	"github.com/dukerupert/chorewheel/internal/household"
	"github.com/dukerupert/chorewheel/internal/store"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			logger.Info("migrations applied", "db_path", cfg.DBPath)
			return nil
		},
	}
}

func householdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Manage households",
	}

	var name, passcode string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a household",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			recorder := activity.NewRecorder(store.NewActivityStore(db), nil, nil, logger.With("component", "activity"))
			svc := household.NewService(store.NewHouseholdStore(db), store.NewSessionStore(db), store.NewFamilyMemberStore(db),
				recorder, cfg.SessionTTL, logger.With("component", "household"))

			h, err := svc.Create(cmd.Context(), name, passcode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "household %q created with id %d\n", h.Name, h.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "household name")
	create.Flags().StringVar(&passcode, "passcode", "", "shared passcode (at least 4 characters)")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("passcode")

	cmd.AddCommand(create)
	return cmd
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export and read back household history archives",
	}
	cmd.AddCommand(archiveExportCmd())
	cmd.AddCommand(archiveFetchCmd())
	return cmd
}

func archiveExportCmd() *cobra.Command {
	var householdID int64
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload a household's history archive to S3-compatible storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			h, err := store.NewHouseholdStore(db).GetByID(cmd.Context(), householdID)
			if err != nil {
				return err
			}
			if h == nil {
				return fmt.Errorf("household %d not found", householdID)
			}

			exporter := archive.NewExporter(cfg.Archive.S3(), store.NewTokenStore(db), store.NewTaskStore(db),
				store.NewActivityStore(db), logger.With("component", "archive"))
			res, err := exporter.Export(cmd.Context(), householdID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d bytes to %s\n", res.SizeBytes, res.Key)
			return nil
		},
	}
	cmd.Flags().Int64Var(&householdID, "household", 0, "household id")
	cmd.MarkFlagRequired("household")
	return cmd
}

func archiveFetchCmd() *cobra.Command {
	var (
		key    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download an archive and summarise or print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			// Reading back touches only the bucket.
			exporter := archive.NewExporter(cfg.Archive.S3(), nil, nil, nil, logger.With("component", "archive"))
			snap, err := exporter.Fetch(cmd.Context(), key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprintf(out, "household %d exported %s\n", snap.HouseholdID, snap.ExportedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  token entries: %d\n  completions:   %d\n  activity:      %d\n",
				len(snap.TokenEntries), len(snap.Completions), len(snap.Activity))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key printed by archive export")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decoded archive as JSON")
	cmd.MarkFlagRequired("key")
	return cmd
}
