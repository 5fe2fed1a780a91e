package main

import (
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "从试卷中提取全部试题",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().String("subject", "", "科目")
	extractCmd.Flags().Int("year", 0, "试卷年份")
	extractCmd.Flags().String("grade", "", "年级")
	extractCmd.Flags().String("exam", "", "考试类型")
	for _, name := range []string{"subject", "year", "grade", "exam"} {
		_ = extractCmd.MarkFlagRequired(name)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	subject, _ := flags.GetString("subject")
	year, _ := flags.GetInt("year")
	grade, _ := flags.GetString("grade")
	examType, _ := flags.GetString("exam")

	flows, cfg, err := loadFlows()
	if err != nil {
		return err
	}
	docs, err := loadDocuments(ctx, args, cfg.Limits.MaxFileBytes)
	if err != nil {
		return err
	}

	questions, err := flows.ExtractQuestions(ctx, model.ExtractQuestionsInput{
		Document: docs[0],
		Subject:  subject,
		Year:     year,
		Grade:    grade,
		ExamType: examType,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), questions)
}
