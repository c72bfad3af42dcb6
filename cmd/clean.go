package cmd

import (
	"context"
	"fmt"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/database/models"
	"github.com/friedchicken888/cab432-a2/internal/app"
	"github.com/friedchicken888/cab432-a2/storage"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cleanCmd 清理 blob 已丢失的分形记录
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove fractal records whose blob is gone",
	Long: `Check every fractal record against the blob store and delete the ones
whose blob no longer exists. Gallery entries referencing them are removed
with the record and history entries lose their fractal reference.

Cached listing pages are cleared afterwards when cache_type=redis. With
cache_type=memory the server keeps serving them until the listing TTL
expires.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		if err := runClean(cmd.Context(), dryRun, batchSize); err != nil {
			utils.Component("clean").Fatal("clean failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("dry-run", false, "Only show what would be cleaned, don't actually delete")
	cleanCmd.Flags().Int("batch-size", 200, "Number of records checked per batch")
}

// cleanStats 清理统计信息
type cleanStats struct {
	checked  int
	dangling int
	deleted  int
	errors   []string
}

// artifactDeleter 删除分形记录并清除其缓存
type artifactDeleter interface {
	Delete(ctx context.Context, id uint) error
}

// runClean 执行清理
func runClean(ctx context.Context, dryRun bool, batchSize int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	container := app.NewContainer(config.Get())
	if err := container.Init(); err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer container.Close()

	db := container.Database.GetProvider().DB()
	stats, err := cleanDangling(ctx, db, container.Blobs, container.Artifacts, batchSize, dryRun)
	printCleanStats(stats, dryRun)
	if err != nil {
		return err
	}

	if stats.deleted > 0 {
		log := utils.Component("clean")
		listings := []*cache.KeyBuilder{cache.Collection, cache.AdminCollection}
		if err := clearCache(ctx, container.Cache, listings, log); err != nil {
			log.Warn("failed to clear listing cache", zap.Error(err))
		}
	}
	if len(stats.errors) > 0 {
		return fmt.Errorf("encountered %d errors during cleanup", len(stats.errors))
	}
	return nil
}

// cleanDangling 找出 blob 缺失的分形；dryRun 为 false 时删除
func cleanDangling(ctx context.Context, db *gorm.DB, blobs storage.Provider, deleter artifactDeleter, batchSize int, dryRun bool) (*cleanStats, error) {
	log := utils.Component("clean")
	stats := &cleanStats{}
	if batchSize <= 0 {
		batchSize = 200
	}

	var dangling []models.Fractal
	var batch []models.Fractal
	result := db.WithContext(ctx).Select("id", "hash", "blob_key").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, f := range batch {
			stats.checked++
			exists, err := blobs.Exists(ctx, f.BlobKey)
			if err != nil {
				stats.errors = append(stats.errors, fmt.Sprintf("check %s: %v", f.BlobKey, err))
				continue
			}
			if !exists {
				dangling = append(dangling, f)
			}
		}
		return ctx.Err()
	})
	if result.Error != nil {
		return stats, fmt.Errorf("failed to scan fractals: %w", result.Error)
	}

	stats.dangling = len(dangling)
	for _, f := range dangling {
		log.Info("dangling fractal",
			zap.Uint("id", f.ID),
			zap.String("hash", f.Hash),
			zap.String("blob_key", f.BlobKey),
			zap.Bool("dry_run", dryRun))
		if dryRun {
			continue
		}
		if err := deleter.Delete(ctx, f.ID); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("delete fractal %d: %v", f.ID, err))
			continue
		}
		stats.deleted++
	}
	return stats, nil
}

// printCleanStats 打印清理统计
func printCleanStats(stats *cleanStats, dryRun bool) {
	if stats == nil {
		return
	}
	fmt.Println()
	fmt.Println("========================================")
	if dryRun {
		fmt.Println("       Clean Statistics (dry run)")
	} else {
		fmt.Println("       Clean Statistics")
	}
	fmt.Println("========================================")
	fmt.Printf("Fractals checked:   %d\n", stats.checked)
	fmt.Printf("Missing blobs:      %d\n", stats.dangling)
	fmt.Printf("Records deleted:    %d\n", stats.deleted)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
