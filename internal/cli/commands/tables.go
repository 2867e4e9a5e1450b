package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables in the metadata catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(cmd)
		},
	}
}

func runTables(cmd *cobra.Command) error {
	cfg := getConfig(cmd.Context())

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	tables, err := cat.Tables(cmd.Context())
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Name", "Entity Type", "Fields"})
	for _, t := range tables {
		fields, err := cat.FieldsOf(cmd.Context(), t.ID)
		if err != nil {
			return err
		}
		tw.AppendRow(table.Row{t.ID, catalog.TableDisplayName(t), t.EntityType, len(fields)})
	}
	renderTable(cfg, cmd.OutOrStdout(), tw)
	return nil
}
