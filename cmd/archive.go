package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/friedchicken888/cab432-a2/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const archiveVersion = "1"

// backupMetadata 备份元数据
type backupMetadata struct {
	Version     string           `json:"version"`
	Timestamp   time.Time        `json:"timestamp"`
	Database    string           `json:"database"`
	Tables      []string         `json:"tables"`
	RecordCount map[string]int64 `json:"record_count"`
}

// archiveTable 一张表的 JSONL 导出与导入
type archiveTable struct {
	name string
	dump func(ctx context.Context, db *gorm.DB, w io.Writer) (int64, error)
	load func(ctx context.Context, db *gorm.DB, r io.Reader, batchSize int, dryRun bool) (read, written int64, err error)
}

// archiveTables 按外键依赖排序，导入时依次写入，清空时逆序
var archiveTables = []archiveTable{
	jsonlTable[models.Fractal]("fractals"),
	jsonlTable[models.GalleryEntry]("gallery"),
	jsonlTable[models.HistoryEntry]("history"),
}

func findArchiveTable(name string) (archiveTable, bool) {
	for _, t := range archiveTables {
		if t.name == name {
			return t, true
		}
	}
	return archiveTable{}, false
}

func jsonlTable[T any](name string) archiveTable {
	return archiveTable{
		name: name,
		dump: func(ctx context.Context, db *gorm.DB, w io.Writer) (int64, error) {
			enc := json.NewEncoder(w)
			var count int64
			var batch []T
			res := db.WithContext(ctx).FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
				for i := range batch {
					if err := enc.Encode(&batch[i]); err != nil {
						return err
					}
					count++
				}
				return nil
			})
			return count, res.Error
		},
		load: func(ctx context.Context, db *gorm.DB, r io.Reader, batchSize int, dryRun bool) (int64, int64, error) {
			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

			insert := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Session(&gorm.Session{})
			var read, written int64
			batch := make([]T, 0, batchSize)
			flush := func() error {
				if len(batch) == 0 || dryRun {
					batch = batch[:0]
					return nil
				}
				res := insert.Omit(clause.Associations).Create(&batch)
				if res.Error != nil {
					return res.Error
				}
				written += res.RowsAffected
				batch = batch[:0]
				return nil
			}

			line := 0
			for scanner.Scan() {
				line++
				if len(scanner.Bytes()) == 0 {
					continue
				}
				var rec T
				if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
					return read, written, fmt.Errorf("%s line %d: %w", name, line, err)
				}
				read++
				batch = append(batch, rec)
				if len(batch) >= batchSize {
					if err := flush(); err != nil {
						return read, written, err
					}
				}
			}
			if err := scanner.Err(); err != nil {
				return read, written, fmt.Errorf("error reading JSONL: %w", err)
			}
			return read, written, flush()
		},
	}
}
