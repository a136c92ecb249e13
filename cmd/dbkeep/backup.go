package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbkeep/dbkeep/internal/catalog"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up every tracked database",
	Long:  "Dump every tracked database and upload the artifacts to the storage pool. All databases in one run share a timestamp.",
	Args:  cobra.NoArgs,
	RunE:  runBackup,
}

var listCmd = &cobra.Command{
	Use:     "list [database]",
	Aliases: []string{"ls"},
	Short:   "List backups",
	Long:    "List the backups of one database, or of every tracked database with \"all\" (the default). Printed indices are tokens for download, restore and delete, valid against a single-database listing.",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runList,
}

var downloadCmd = &cobra.Command{
	Use:   "download <index:database>",
	Short: "Download a backup",
	Long:  "Download the backup addressed by an index:database token into the download directory.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <index:database>",
	Short: "Restore a backup into its source database",
	Long:  "Download the backup addressed by token and load it back into the database it was taken from. Existing data in that database is overwritten.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var cloneCmd = &cobra.Command{
	Use:   "clone <database>",
	Short: "Clone the latest backup into the staging database",
	Long:  "Load the most recent backup of a database into its staging counterpart (name derived by replacing _production with _staging). The staging database is dropped and recreated.",
	Args:  cobra.ExactArgs(1),
	RunE:  runClone,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply the retention policy",
	Long:  "Delete the oldest backups across all tracked databases, keeping --keep backups per tracked database in total.",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <index:database>",
	Short: "Delete a backup",
	Long:  "Delete the backup addressed by an index:database token from the storage pool.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runBackup(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	return mgr.BackupAll(cmd.Context())
}

func runList(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	database := catalog.All
	if len(args) > 0 {
		database = args[0]
	}

	return mgr.List(cmd.Context(), database, os.Stdout)
}

func runDownload(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	database, path, err := mgr.Download(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded backup of %s to %s\n", database, path)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	return mgr.Restore(cmd.Context(), args[0])
}

func runClone(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	return mgr.Clone(cmd.Context(), args[0])
}

func runCleanup(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	deleted, err := mgr.Cleanup(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d backup(s)\n", deleted)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}

	return mgr.Delete(cmd.Context(), args[0])
}
