package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdg-tools/crosswalk-cli/internal/fixture"
	"github.com/sdg-tools/crosswalk-cli/internal/record"
	"github.com/sdg-tools/crosswalk-cli/internal/snapshot"
)

var (
	recordsSource       string
	recordsQuery        string
	recordsFilters      []string
	recordsExactFilters []string
	recordsTable        bool
	recordsExportOut    string
	recordsImportSave   string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Explore, filter, import and export JSON record collections",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records passing the configured filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadRecordStore(cmd.Context())
		if err != nil {
			return err
		}

		st.SetGlobalQuery(recordsQuery)
		if err := applyFilterFlags(st, recordsFilters, record.MatchSubstring); err != nil {
			return err
		}
		if err := applyFilterFlags(st, recordsExactFilters, record.MatchExact); err != nil {
			return err
		}

		entries := st.VisibleEntries()
		if recordsTable {
			return printRecordTable(cmd, st, entries)
		}

		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal records")
		}
		cmd.Println(string(out))
		return nil
	},
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full collection (not the filtered view) as indented JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadRecordStore(cmd.Context())
		if err != nil {
			return err
		}

		out := recordsExportOut
		if out == "" {
			name := fmt.Sprintf("exported-data-%s.json", time.Now().UTC().Format("2006-01-02"))
			out = filepath.Join(cfg.Export.Dir, name)
		}

		data, err := json.MarshalIndent(st.ExportSnapshot(), "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal snapshot")
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", out)
		}

		zap.L().Info("collection exported",
			zap.String("file", out),
			zap.Int("records", st.Len()),
		)
		cmd.Println(out)
		return nil
	},
}

var recordsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate and import a JSON collection",
	Long:  "Parses a user-supplied .json file. A top-level object is coerced to a one-element collection; a top-level array is used as-is. Malformed JSON aborts the import.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		records, err := record.ImportCollection(data)
		if err != nil {
			return eris.Wrapf(err, "import %s", args[0])
		}

		st := record.NewStore()
		st.Load(records)

		cmd.Printf("imported %d record(s), %d known field(s): %s\n",
			st.Len(), len(st.KnownFields()), strings.Join(st.KnownFields(), ", "))

		if recordsImportSave != "" {
			snap, err := saveSnapshot(cmd.Context(), recordsImportSave, records)
			if err != nil {
				return err
			}
			cmd.Printf("saved snapshot %q (%d records)\n", snap.Name, snap.Records)
		}
		return nil
	},
}

func init() {
	recordsCmd.PersistentFlags().StringVar(&recordsSource, "source", "", "collection source: path or URL (default from config)")

	recordsListCmd.Flags().StringVarP(&recordsQuery, "query", "q", "", "global substring query across all fields")
	recordsListCmd.Flags().StringArrayVar(&recordsFilters, "filter", nil, "per-field substring filter, field=pattern (repeatable)")
	recordsListCmd.Flags().StringArrayVar(&recordsExactFilters, "filter-exact", nil, "per-field exact filter, field=pattern (repeatable)")
	recordsListCmd.Flags().BoolVar(&recordsTable, "table", false, "print visible columns as a table instead of JSON")

	recordsExportCmd.Flags().StringVar(&recordsExportOut, "out", "", "output file (default exported-data-<date>.json in export.dir)")

	recordsImportCmd.Flags().StringVar(&recordsImportSave, "save", "", "save the imported collection as a named snapshot")

	recordsCmd.AddCommand(recordsListCmd, recordsExportCmd, recordsImportCmd)
	rootCmd.AddCommand(recordsCmd)
}

// loadRecordStore loads the configured (or overridden) collection source
// into a fresh store. A load failure degrades to an empty collection only
// in serve mode; CLI commands surface it.
func loadRecordStore(ctx context.Context) (*record.Store, error) {
	source := recordsSource
	if source == "" {
		source = cfg.Fixtures.Crosswalk
	}

	fetcher := fixture.NewFetcher(time.Duration(cfg.Fixtures.TimeoutSecs) * time.Second)
	records, err := fetcher.LoadCrosswalk(ctx, source)
	if err != nil {
		return nil, eris.Wrapf(err, "load collection %s", source)
	}

	st := record.NewStore()
	st.Load(records)
	return st, nil
}

// applyFilterFlags parses repeated field=pattern flags onto the store.
func applyFilterFlags(st *record.Store, flags []string, mode record.MatchMode) error {
	for _, f := range flags {
		field, pattern, ok := strings.Cut(f, "=")
		if !ok || field == "" {
			return eris.Errorf("invalid filter %q, expected field=pattern", f)
		}
		st.SetFieldFilter(field, pattern, mode)
	}
	return nil
}

// printRecordTable renders the visible columns of the filtered records.
func printRecordTable(cmd *cobra.Command, st *record.Store, entries []record.Entry) error {
	vis := st.Visibility()
	var cols []string
	for _, f := range st.KnownFields() {
		if vis[f] {
			cols = append(cols, f)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(append([]string{"IDENTITY"}, cols...), "\t"))
	for _, e := range entries {
		row := []string{e.Identity}
		for _, c := range cols {
			v, _ := e.Record.Get(c)
			row = append(row, cellText(v))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// saveSnapshot opens the snapshot database and stores the collection.
func saveSnapshot(ctx context.Context, name string, records []record.Record) (*snapshot.Snapshot, error) {
	store, err := snapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close() //nolint:errcheck

	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store.Save(ctx, name, records)
}
