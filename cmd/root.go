package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "workflow-engine",
	Short: "Workflow approval engine API server",
	Long: `Workflow engine is a REST API server for approval workflow management.
It executes graph-defined approval processes with AND/OR signing policies,
conditional branching and timeout handling.`,
}

// Execute 执行根命令,由 main.main() 调用
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: config.yaml)")
}

// GetRootCmd 返回根命令（用于测试）
func GetRootCmd() *cobra.Command {
	return rootCmd
}
