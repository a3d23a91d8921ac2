package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sdg-tools/crosswalk-cli/internal/snapshot"
)

var (
	snapshotName string
	snapshotOut  string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, list and restore named collection snapshots",
	Long:  "Snapshots are an explicit opt-in: the explorer itself keeps edits in memory only. A snapshot stores the full collection in a local SQLite database.",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the current collection source as a named snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}
		if snapshotName == "" {
			return eris.New("--name is required")
		}

		st, err := loadRecordStore(cmd.Context())
		if err != nil {
			return err
		}

		snap, err := saveSnapshot(cmd.Context(), snapshotName, st.ExportSnapshot())
		if err != nil {
			return err
		}
		cmd.Printf("saved snapshot %q (%d records)\n", snap.Name, snap.Records)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}

		store, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}

		snaps, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tRECORDS\tCREATED")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Records, s.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Write a stored snapshot back out as indented JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}
		if snapshotName == "" {
			return eris.New("--name is required")
		}

		store, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}

		records, err := store.Restore(cmd.Context(), snapshotName)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal snapshot")
		}

		if snapshotOut == "" {
			cmd.Println(string(data))
			return nil
		}
		if err := os.WriteFile(snapshotOut, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", snapshotOut)
		}
		cmd.Println(snapshotOut)
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a stored snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}
		if snapshotName == "" {
			return eris.New("--name is required")
		}

		store, err := snapshot.Open(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), snapshotName); err != nil {
			return err
		}
		cmd.Printf("deleted snapshot %q\n", snapshotName)
		return nil
	},
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotName, "name", "", "snapshot name")
	snapshotRestoreCmd.Flags().StringVar(&snapshotOut, "out", "", "output file (default stdout)")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotListCmd, snapshotRestoreCmd, snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}
