package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/sqlstore"
)

var (
	schemaJSON bool
	schemaDDL  bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema [pattern]",
	Short: "List tables and views of the database",
	Long: `List the tables and views of the configured SQLite database. An optional
pattern filters names by fuzzy match, best match first.`,
	Example: `  hybridqa schema
  hybridqa schema ord --ddl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print as JSON")
	schemaCmd.Flags().BoolVar(&schemaDDL, "ddl", false, "include the CREATE statements")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(c *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := c.Context()
	store, err := sqlstore.Open(ctx, cfg.Data.DBPath, sqlstore.WithMaxOpenConns(1))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	objs, err := store.Objects(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		objs = sqlstore.MatchObjects(objs, args[0])
	}
	return printObjects(c, objs)
}

func printObjects(c *cobra.Command, objs []sqlstore.Object) error {
	out := c.OutOrStdout()
	if schemaJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(objs)
	}
	if schemaDDL {
		_, err := fmt.Fprint(out, sqlstore.FormatSchema(objs))
		return err
	}
	for _, o := range objs {
		fmt.Fprintf(out, "%-6s %s\n", o.Type, o.Name)
	}
	return nil
}

