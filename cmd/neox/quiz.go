package main

import (
	"errors"
	"fmt"

	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var quizCmd = &cobra.Command{
	Use:   "quiz [files...]",
	Short: "根据学习资料生成选择题测验",
	Long: `quiz 根据学习资料生成四选一的选择题。
加上 --interactive 在终端中逐题作答，结束后输出得分。`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().IntP("count", "n", 5, "题目数量 (1-20)")
	quizCmd.Flags().BoolP("interactive", "i", false, "在终端中作答")
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	count, _ := cmd.Flags().GetInt("count")
	interactive, _ := cmd.Flags().GetBool("interactive")

	flows, cfg, err := loadFlows()
	if err != nil {
		return err
	}
	docs, err := loadDocuments(ctx, args, cfg.Limits.MaxFileBytes)
	if err != nil {
		return err
	}

	quiz, err := flows.GenerateQuiz(ctx, model.GenerateQuizInput{QuestionCount: count, Documents: docs})
	if err != nil {
		return err
	}
	if !interactive {
		return printJSON(cmd.OutOrStdout(), quiz)
	}

	answers, err := takeQuiz(quiz)
	if err != nil {
		return err
	}
	score := model.ScoreQuiz(quiz.Questions, answers)

	out := cmd.OutOrStdout()
	for i, q := range quiz.Questions {
		mark := "✗"
		if score.Results[i] {
			mark = "✓"
		}
		fmt.Fprintf(out, "%s %d. %s\n   正确答案: %s\n   %s\n", mark, i+1, q.QuestionText, q.CorrectAnswer, q.Explanation)
	}
	fmt.Fprintf(out, "\n得分: %d/%d (%.0f%%)\n", score.Correct, score.Total, score.Score*100)
	return nil
}

// takeQuiz 逐题选择答案，Ctrl-C 时已作答的部分照常评分
func takeQuiz(quiz *model.Quiz) ([]string, error) {
	fmt.Printf("%s（共 %d 题）\n\n", quiz.Title, len(quiz.Questions))

	answers := make([]string, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		prompt := promptui.Select{
			Label: fmt.Sprintf("%d. %s", i+1, q.QuestionText),
			Items: q.Options,
		}
		_, answer, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取答案失败: %w", err)
		}
		answers = append(answers, answer)
	}
	return answers, nil
}
