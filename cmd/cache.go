package cmd

import (
	"context"
	"fmt"

	"github.com/friedchicken888/cab432-a2/cache"
	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cacheCmd 缓存管理命令
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  "Manage the shared cache, including clearing artifact and listing entries.",
}

// cacheClearCmd 清除缓存命令
var cacheClearCmd = &cobra.Command{
	Use:   "clear [listings|artifacts|all]",
	Short: "Clear cache",
	Long: `Clear cached entries. By default clears gallery listing pages only.
Artifact entries are safe to keep: a stale one is detected and dropped on use.

Only a shared cache (cache_type=redis) can be cleared from here. With
cache_type=memory the entries live inside the server process and expire
with their TTL.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"listings", "artifacts", "all"},
	Run: func(cmd *cobra.Command, args []string) {
		target := "listings"
		if len(args) == 1 {
			target = args[0]
		}
		if err := runCacheClear(cmd.Context(), target); err != nil {
			utils.Component("cache").Fatal("cache clear failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// clearTargets 返回每类缓存对应的键前缀
func clearTargets(target string) ([]*cache.KeyBuilder, error) {
	listings := []*cache.KeyBuilder{cache.Collection, cache.AdminCollection}
	artifacts := []*cache.KeyBuilder{cache.ArtifactByHash, cache.ArtifactBlobKeyByID}

	switch target {
	case "listings":
		return listings, nil
	case "artifacts":
		return artifacts, nil
	case "all":
		return append(listings, artifacts...), nil
	default:
		return nil, fmt.Errorf("unknown cache target %q (must be listings, artifacts or all)", target)
	}
}

// runCacheClear 执行缓存清理
func runCacheClear(ctx context.Context, target string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := utils.Component("cache")

	builders, err := clearTargets(target)
	if err != nil {
		return err
	}

	factory, err := cache.NewFactory(config.Get())
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer factory.Close()

	return clearCache(ctx, factory, builders, log)
}

// clearCache 清除指定前缀；进程内缓存无法从 CLI 清除，只记录警告
func clearCache(ctx context.Context, factory *cache.Factory, builders []*cache.KeyBuilder, log *zap.Logger) error {
	if name := factory.GetProvider().Name(); name == "memory" {
		log.Warn("in-process cache is not reachable from the CLI, entries expire with their TTL",
			zap.String("provider", name))
		return nil
	}
	n, err := factory.Clear(ctx, builders...)
	if err != nil {
		return err
	}
	prefixes := make([]string, 0, len(builders))
	for _, kb := range builders {
		prefixes = append(prefixes, kb.Prefix())
	}
	log.Info("cache cleared",
		zap.String("provider", factory.GetProvider().Name()),
		zap.Strings("prefixes", prefixes),
		zap.Int("deleted", n))
	return nil
}
