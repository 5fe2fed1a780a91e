package main

import (
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict [files...]",
	Short: "根据教材和往年试卷预测考试重点",
	Long: `predict 分析教材和往年试卷，给出可能考到的主题和复习建议。
位置参数作为未区分类型的文档，--textbook 和 --paper 可分别指定教材和试卷。`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().String("exam", "", "考试类型，例如 \"Grade 10 Physics Final\"")
	predictCmd.Flags().StringSlice("textbook", nil, "教材文件")
	predictCmd.Flags().StringSlice("paper", nil, "往年试卷文件")
	_ = predictCmd.MarkFlagRequired("exam")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	examType, _ := cmd.Flags().GetString("exam")
	textbookPaths, _ := cmd.Flags().GetStringSlice("textbook")
	paperPaths, _ := cmd.Flags().GetStringSlice("paper")

	flows, cfg, err := loadFlows()
	if err != nil {
		return err
	}

	in := model.PredictExamInput{ExamType: examType}
	if in.Documents, err = loadDocuments(ctx, args, cfg.Limits.MaxFileBytes); err != nil {
		return err
	}
	if in.Textbooks, err = loadDocuments(ctx, textbookPaths, cfg.Limits.MaxFileBytes); err != nil {
		return err
	}
	if in.PastPapers, err = loadDocuments(ctx, paperPaths, cfg.Limits.MaxFileBytes); err != nil {
		return err
	}

	prediction, err := flows.PredictExam(ctx, in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), prediction)
}
