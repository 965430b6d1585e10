package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dukerupert/landlord/internal/backup"
	"github.com/dukerupert/landlord/internal/database"
)

var restoreForce bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Encrypted database snapshots in S3-compatible storage",
}

var backupRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Snapshot the database, upload it, then prune expired snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeDB, err := backupManager()
		if err != nil {
			return err
		}
		defer closeDB()

		snap, err := m.Run(cmd.Context(), cfg.BackupPassphrase)
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %s (%s)\n", snap.Key, humanize.IBytes(uint64(snap.SizeBytes)))

		deleted, err := m.Prune(cmd.Context(), cfg.BackupRetention)
		if err != nil {
			return err
		}
		for _, key := range deleted {
			fmt.Printf("pruned %s\n", key)
		}
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeDB, err := backupManager()
		if err != nil {
			return err
		}
		defer closeDB()

		snaps, err := m.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("no backups")
			return nil
		}
		for _, s := range snaps {
			fmt.Printf("%-48s %10s  %s\n", s.Key, humanize.IBytes(uint64(s.SizeBytes)), humanize.Time(s.TakenAt))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore KEY",
	Short: "Download a snapshot and write it over the configured database",
	Long: `restore replaces LANDLORD_DB_PATH with the given snapshot. Stop the
server first. An existing database is only overwritten with --force.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfg.DBPath); err == nil && !restoreForce {
			return fmt.Errorf("%s exists; pass --force to overwrite it", cfg.DBPath)
		}
		m, err := backup.NewManager(s3Config(), nil, logger.With("component", "backup"))
		if err != nil {
			return err
		}
		key := args[0]
		if !strings.HasPrefix(key, cfg.S3Prefix) {
			key = cfg.S3Prefix + key
		}
		return m.Restore(cmd.Context(), key, cfg.BackupPassphrase, cfg.DBPath)
	},
}

func init() {
	backupRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "overwrite an existing database file")
	backupCmd.AddCommand(backupRunCmd, backupListCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

func s3Config() backup.S3Config {
	return backup.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Prefix:    cfg.S3Prefix,
	}
}

func backupManager() (*backup.Manager, func(), error) {
	if cfg.BackupPassphrase == "" {
		return nil, nil, errors.New("LANDLORD_BACKUP_PASSPHRASE is required")
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	m, err := backup.NewManager(s3Config(), db, logger.With("component", "backup"))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, func() { db.Close() }, nil
}
