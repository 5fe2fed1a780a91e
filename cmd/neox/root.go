package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "neox",
	Short: "Neo X 学习资料分析命令行",
	Long: `neox 在本地直接调用模型完成考题预测、测验生成、辅导对话和试题提取。
文档以文件路径传入，结果以 JSON 输出到标准输出。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "configs/api.yaml", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(predictCmd, quizCmd, chatCmd, extractCmd, analyzeCmd)
}
