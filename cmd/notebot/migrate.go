package main

import (
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahsanfayaz52/notebot/internal/db"
	"github.com/ahsanfayaz52/notebot/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database and its tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Migrate(cmd.Context(), cfg); err != nil {
			return err
		}
		logger.Info("database ready", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

var deleteNoteCmd = &cobra.Command{
	Use:   "delete-note [id]",
	Short: "Delete a note and its tag links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := store.New(conn).DeleteNote(cmd.Context(), id); err != nil {
			return err
		}
		logger.Info("note deleted", zap.Int64("note_id", id))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(deleteNoteCmd)
}
