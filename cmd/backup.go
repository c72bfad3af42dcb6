package cmd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/database"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// backupCmd 数据库备份命令
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup database to JSONL archive",
	Long: `Backup fractals, gallery entries and history as JSONL files packed into a tar.gz archive.
Blobs are not included.

Example:
  # Backup to default file (./backups/backup_YYYYMMDD_HHMMSS.tar.gz)
  fractal-gallery backup

  # Backup to specific file
  fractal-gallery backup --output ./my-backup.tar.gz`,
	Run: func(cmd *cobra.Command, args []string) {
		outputFile, _ := cmd.Flags().GetString("output")
		tables, _ := cmd.Flags().GetStringSlice("tables")

		if err := runBackup(cmd.Context(), outputFile, tables); err != nil {
			utils.Component("backup").Fatal("backup failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("output", "o", "", "Output tar.gz file path (default: ./backups/backup_YYYYMMDD_HHMMSS.tar.gz)")
	backupCmd.Flags().StringSliceP("tables", "t", []string{}, "Specific tables to backup (default: all)")
}

// runBackup 执行备份
func runBackup(ctx context.Context, outputFile string, tables []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()

	factory, err := database.NewFactory(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer factory.Close()

	if outputFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputFile = filepath.Join("./backups", fmt.Sprintf("backup_%s.tar.gz", timestamp))
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return err
	}

	metadata, err := writeBackup(ctx, factory.GetProvider().DB(), factory.GetProvider().Name(), tables, file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outputFile)
		return err
	}

	utils.Component("backup").Info("backup completed", zap.String("output", outputFile))
	printBackupSummary(metadata, outputFile)
	return nil
}

// writeBackup 将指定表写成 tar.gz 归档，每张表一个 JSONL 文件
func writeBackup(ctx context.Context, db *gorm.DB, dbName string, tables []string, w io.Writer) (*backupMetadata, error) {
	selected, err := selectTables(tables)
	if err != nil {
		return nil, err
	}

	gzWriter := gzip.NewWriter(w)
	tarWriter := tar.NewWriter(gzWriter)

	metadata := &backupMetadata{
		Version:     archiveVersion,
		Timestamp:   time.Now(),
		Database:    dbName,
		RecordCount: make(map[string]int64),
	}

	for _, t := range selected {
		var buf bytes.Buffer
		count, err := t.dump(ctx, db, &buf)
		if err != nil {
			return nil, fmt.Errorf("failed to backup table %s: %w", t.name, err)
		}
		if err := writeTarEntry(tarWriter, t.name+".jsonl", buf.Bytes(), metadata.Timestamp); err != nil {
			return nil, err
		}
		metadata.Tables = append(metadata.Tables, t.name)
		metadata.RecordCount[t.name] = count
	}

	meta, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeTarEntry(tarWriter, "metadata.json", meta, metadata.Timestamp); err != nil {
		return nil, err
	}

	if err := tarWriter.Close(); err != nil {
		return nil, err
	}
	if err := gzWriter.Close(); err != nil {
		return nil, err
	}
	return metadata, nil
}

func selectTables(names []string) ([]archiveTable, error) {
	if len(names) == 0 {
		return archiveTables, nil
	}
	var out []archiveTable
	for _, t := range archiveTables {
		for _, n := range names {
			if n == t.name {
				out = append(out, t)
				break
			}
		}
	}
	for _, n := range names {
		if _, ok := findArchiveTable(n); !ok {
			return nil, fmt.Errorf("unknown table: %s", n)
		}
	}
	return out, nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// printBackupSummary 打印备份摘要
func printBackupSummary(metadata *backupMetadata, outputFile string) {
	fmt.Println("\nBackup Summary:")
	fmt.Println("===============")
	fmt.Printf("Version:    %s\n", metadata.Version)
	fmt.Printf("Timestamp:  %s\n", metadata.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Database:   %s\n", metadata.Database)
	fmt.Printf("Output:     %s\n", outputFile)
	fmt.Println("\nTables backed up:")
	var total int64
	for _, table := range metadata.Tables {
		count := metadata.RecordCount[table]
		total += count
		fmt.Printf("  - %s: %d records\n", table, count)
	}
	fmt.Printf("\nTotal records: %d\n", total)
}
