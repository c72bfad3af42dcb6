package cmd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// restoreCmd 从备份还原
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore database from backup archive",
	Long: `Restore database from tar.gz backup archive created by backup command.
Rows whose primary key already exists are skipped.

Example:
  # Restore from backup file
  fractal-gallery restore --input ./backups/backup_20260214_222320.tar.gz

  # Restore with dry-run (preview only)
  fractal-gallery restore --input ./backup.tar.gz --dry-run

  # Clear existing data before restore
  fractal-gallery restore --input ./backup.tar.gz --truncate`,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile, _ := cmd.Flags().GetString("input")
		tables, _ := cmd.Flags().GetStringSlice("tables")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		truncate, _ := cmd.Flags().GetBool("truncate")
		skipConfirm, _ := cmd.Flags().GetBool("yes")

		opts := restoreOptions{Tables: tables, DryRun: dryRun, Truncate: truncate, BatchSize: 100}
		if err := runRestore(cmd.Context(), inputFile, opts, skipConfirm); err != nil {
			utils.Component("restore").Fatal("restore failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringP("input", "i", "", "Input tar.gz backup file path (required)")
	restoreCmd.Flags().StringSliceP("tables", "t", []string{}, "Specific tables to restore (default: all in archive)")
	restoreCmd.Flags().Bool("dry-run", false, "Preview restore without actually writing to database")
	restoreCmd.Flags().Bool("truncate", false, "Clear existing data before restore")
	restoreCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	_ = restoreCmd.MarkFlagRequired("input")
}

type restoreOptions struct {
	Tables    []string
	DryRun    bool
	Truncate  bool
	BatchSize int
}

// restoreStats 还原统计
type restoreStats struct {
	Metadata *backupMetadata
	Read     map[string]int64
	Restored map[string]int64
}

// runRestore 执行还原
func runRestore(ctx context.Context, inputFile string, opts restoreOptions, skipConfirm bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	file, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}
	defer file.Close()

	factory, err := database.NewFactory(config.Get())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer factory.Close()
	if err := factory.AutoMigrate(); err != nil {
		return err
	}

	if !opts.DryRun && !skipConfirm {
		q := "Restore the archive into the current database?"
		if opts.Truncate {
			q = "Existing fractals, gallery and history will be DELETED. Restore the archive?"
		}
		if !confirm(q) {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	db := factory.GetProvider().DB()
	stats, err := readBackup(ctx, db, file, opts)
	if stats != nil {
		printRestoreSummary(stats, opts.DryRun)
	}
	return err
}

// readBackup 解压归档并按依赖顺序导入
func readBackup(ctx context.Context, db *gorm.DB, r io.Reader, opts restoreOptions) (*restoreStats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	entries, err := readTarGz(r)
	if err != nil {
		return nil, fmt.Errorf("failed to extract backup: %w", err)
	}

	raw, ok := entries["metadata.json"]
	if !ok {
		return nil, errors.New("archive has no metadata.json")
	}
	var metadata backupMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	if metadata.Version != archiveVersion {
		return nil, fmt.Errorf("unsupported backup version %q", metadata.Version)
	}

	names := opts.Tables
	if len(names) == 0 {
		names = metadata.Tables
	}
	selected, err := selectTables(names)
	if err != nil {
		return nil, err
	}

	log := utils.Component("restore")
	log.Info("restoring backup",
		zap.String("version", metadata.Version),
		zap.String("database", metadata.Database),
		zap.Time("timestamp", metadata.Timestamp),
		zap.Bool("dry_run", opts.DryRun))

	stats := &restoreStats{
		Metadata: &metadata,
		Read:     make(map[string]int64),
		Restored: make(map[string]int64),
	}

	if opts.Truncate && !opts.DryRun {
		if err := truncateTables(ctx, db, selected); err != nil {
			return stats, err
		}
	}

	for _, t := range selected {
		data, ok := entries[t.name+".jsonl"]
		if !ok {
			log.Warn("table missing from archive", zap.String("table", t.name))
			continue
		}
		read, written, err := t.load(ctx, db, bytes.NewReader(data), opts.BatchSize, opts.DryRun)
		stats.Read[t.name] = read
		stats.Restored[t.name] = written
		if err != nil {
			return stats, fmt.Errorf("failed to restore %s: %w", t.name, err)
		}
		log.Info("table restored", zap.String("table", t.name), zap.Int64("read", read), zap.Int64("written", written))
	}

	if !opts.DryRun && db.Dialector.Name() == "postgres" {
		for _, t := range selected {
			if err := resetSequence(ctx, db, t.name); err != nil {
				log.Warn("failed to update sequence", zap.String("table", t.name), zap.Error(err))
			}
		}
	}
	return stats, nil
}

// readTarGz 读取归档中的普通文件
func readTarGz(r io.Reader) (map[string][]byte, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gzReader.Close()

	entries := make(map[string][]byte)
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, err
		}
		entries[path.Clean(header.Name)] = data
	}
	return entries, nil
}

// truncateTables 按依赖逆序清空
func truncateTables(ctx context.Context, db *gorm.DB, tables []archiveTable) error {
	for i := len(archiveTables) - 1; i >= 0; i-- {
		name := archiveTables[i].name
		for _, t := range tables {
			if t.name != name {
				continue
			}
			if err := db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s", name)).Error; err != nil {
				return fmt.Errorf("failed to truncate %s: %w", name, err)
			}
		}
	}
	return nil
}

// printRestoreSummary 打印还原摘要
func printRestoreSummary(stats *restoreStats, dryRun bool) {
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       [DRY RUN MODE]")
	}
	fmt.Println("         Restore Summary")
	fmt.Println("========================================")
	for _, t := range archiveTables {
		read, ok := stats.Read[t.name]
		if !ok {
			continue
		}
		fmt.Printf("  %-10s read: %-8d restored: %d\n", t.name+":", read, stats.Restored[t.name])
	}
	fmt.Println("========================================")
}
