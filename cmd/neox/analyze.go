package main

import (
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paper] [textbook]",
	Short: "对照教材分析一份试卷（旧版接口）",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("exam", "", "考试类型")
	_ = analyzeCmd.MarkFlagRequired("exam")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	examType, _ := cmd.Flags().GetString("exam")

	flows, cfg, err := loadFlows()
	if err != nil {
		return err
	}
	docs, err := loadDocuments(ctx, args, cfg.Limits.MaxFileBytes)
	if err != nil {
		return err
	}

	analysis, err := flows.AnalyzePapers(ctx, model.AnalyzePapersInput{
		ExamType:  examType,
		ExamPaper: docs[0],
		Textbook:  docs[1],
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), analysis)
}
