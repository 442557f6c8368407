package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/api"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/config"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/container"
)

// serverCmd server 子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the workflow engine API server.
The server listens on the configured host and port and provides
REST API interfaces for workflow definitions, instances and tasks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := api.NewLoggerFromConfig(&cfg.Log)

		// 2. 装配容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 启动指标采集
		ctr.MetricsCollector.Start()

		// 4. 配置热更新
		watcher := config.NewWatcher(cfg, configPath, logger)
		if err := watcher.Start(); err != nil {
			logger.WithError(err).Warn("config hot reload disabled")
		}
		defer watcher.Stop()

		// 5. 启动 HTTP 服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: ctr.Router.Setup(),
		}

		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("failed to start server")
			}
		}()

		// 6. 等待中断信号后优雅关闭
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
