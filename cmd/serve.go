package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/friedchicken888/cab432-a2/api/core"
	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/internal/app"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	log := utils.Component("server")
	cfg := config.Get()
	defer func() { _ = utils.Logger().Sync() }()

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatal("failed to initialize container", zap.Error(err))
	}

	server, cleanup := core.StartServer(container)
	go func() {
		log.Info("server started", zap.String("addr", server.Addr), zap.String("version", config.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RenderTimeout+5*time.Second)
	defer cancel()

	// 先排空请求再关闭存储
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	if cleanup != nil {
		cleanup()
	}

	if err := container.Close(); err != nil {
		log.Error("error closing container", zap.Error(err))
	}

	log.Info("server exited")
}
