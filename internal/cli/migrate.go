package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"classattend/internal/config"
	"classattend/internal/logger"
	"classattend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the Postgres schema",
	Long: `Applies the idempotent schema statements, including the pgvector
extension and the embedding column sized to EMBEDDING_DIM.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

var migratePrint bool

func init() {
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "Print the statements instead of executing them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if migratePrint {
		for _, stmt := range store.Schema(cfg.Matching.EmbeddingDim) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
		}
		return nil
	}

	log := logger.New(logger.Options{Env: cfg.Env, Level: cfg.LogLevel, Dir: cfg.LogDir, Name: "attendctl"})
	db, err := store.NewDB(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(cmd.Context(), db.Client, cfg.Matching.EmbeddingDim, log); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}
