package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/eschoolbooks/neox-go/internal/client"
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/flow"
	"github.com/eschoolbooks/neox-go/pkg/datauri"
	"github.com/eschoolbooks/neox-go/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentReads 同时读取的文件数
const maxConcurrentReads = 4

// loadFlows 根据配置构造模型客户端和全部流程
func loadFlows() (*flow.Flows, *config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	zapLogger := zap.NewNop()
	if verbose {
		if zapLogger, err = logger.NewLogger("debug", cfg.Log.Format); err != nil {
			return nil, nil, err
		}
	}

	provider, err := client.NewProvider(cfg.Model, zapLogger)
	if err != nil {
		return nil, nil, err
	}
	mc := client.NewModelClient(provider, cfg.Model.Temperature, zapLogger)

	flows, err := flow.New(mc, cfg, zapLogger)
	if err != nil {
		return nil, nil, err
	}
	return flows, cfg, nil
}

// loadDocuments 并发读取文件并编码为 data URI，结果顺序与参数一致
func loadDocuments(ctx context.Context, paths []string, maxBytes int64) ([]string, error) {
	docs := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			doc, err := datauri.FromFile(path, maxBytes)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
