package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [files...]",
	Short: "围绕学习资料与 AI 辅导老师对话",
	Long: `chat 在终端中开启多轮对话，历史保存在本次进程内。
输入 /reset 清空历史，/exit 或 Ctrl-D 退出。`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flows, cfg, err := loadFlows()
	if err != nil {
		return err
	}
	docs, err := loadDocuments(ctx, args, cfg.Limits.MaxFileBytes)
	if err != nil {
		return err
	}

	session := model.NewChatSession(docs)
	out := cmd.OutOrStdout()
	prompt := promptui.Prompt{Label: "你"}

	for {
		line, err := prompt.Run()
		if errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("读取输入失败: %w", err)
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/exit":
			return nil
		case "/reset":
			session = model.NewChatSession(docs)
			fmt.Fprintln(out, "对话已清空")
			continue
		}

		in := session.NextInput(line)
		reply, err := flows.Chat(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "出错了: %s\n", apperr.Message(err))
			continue
		}
		session.Record(in.Message, reply.Reply)
		fmt.Fprintf(out, "Neo X: %s\n\n", reply.Reply)
	}
}
