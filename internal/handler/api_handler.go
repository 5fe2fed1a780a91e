package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/internal/config"
	"github.com/eschoolbooks/neox-go/internal/flow"
	"github.com/eschoolbooks/neox-go/internal/middleware"
	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/eschoolbooks/neox-go/internal/service"
	"github.com/eschoolbooks/neox-go/internal/store"
	"github.com/eschoolbooks/neox-go/pkg/datauri"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应体
type Response struct {
	Success  bool            `json:"success"`
	Data     any             `json:"data,omitempty"`
	RecordID string          `json:"recordId,omitempty"`
	Warning  string          `json:"warning,omitempty"`
	Error    *model.APIError `json:"error,omitempty"`
}

// APIHandler 文档分析接口
type APIHandler struct {
	analysis *service.AnalysisService
	sessions *service.SessionService
	limits   config.LimitsConfig
	logger   *zap.Logger
}

// NewAPIHandler 创建 API 处理器
func NewAPIHandler(analysis *service.AnalysisService, sessions *service.SessionService, limits config.LimitsConfig, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		analysis: analysis,
		sessions: sessions,
		limits:   limits,
		logger:   logger,
	}
}

// PredictExam 考题预测
func (h *APIHandler) PredictExam(c *gin.Context) {
	var in model.PredictExamInput
	if !h.bind(c, &in) || !h.checkAttachments(c, in.AllDocuments()) {
		return
	}
	res, err := h.analysis.PredictExam(c.Request.Context(), middleware.GetUserID(c), in)
	h.respond(c, res, err)
}

// GenerateQuiz 生成测验
func (h *APIHandler) GenerateQuiz(c *gin.Context) {
	var in model.GenerateQuizInput
	if !h.bind(c, &in) || !h.checkAttachments(c, in.Documents) {
		return
	}
	res, err := h.analysis.GenerateQuiz(c.Request.Context(), middleware.GetUserID(c), in)
	h.respond(c, res, err)
}

// Chat 辅导对话，历史由调用方维护
func (h *APIHandler) Chat(c *gin.Context) {
	var in model.ChatInput
	if !h.bind(c, &in) || !h.checkAttachments(c, in.Documents) {
		return
	}
	res, err := h.analysis.Chat(c.Request.Context(), middleware.GetUserID(c), in)
	h.respond(c, res, err)
}

// ExtractQuestions 试题提取
func (h *APIHandler) ExtractQuestions(c *gin.Context) {
	var in model.ExtractQuestionsInput
	if !h.bind(c, &in) || !h.checkAttachments(c, []string{in.Document}) {
		return
	}
	res, err := h.analysis.ExtractQuestions(c.Request.Context(), middleware.GetUserID(c), in)
	h.respond(c, res, err)
}

// AnalyzePapers 试卷分析（旧版）
func (h *APIHandler) AnalyzePapers(c *gin.Context) {
	var in model.AnalyzePapersInput
	if !h.bind(c, &in) || !h.checkAttachments(c, []string{in.ExamPaper, in.Textbook}) {
		return
	}
	res, err := h.analysis.AnalyzePapers(c.Request.Context(), middleware.GetUserID(c), in)
	h.respond(c, res, err)
}

// ScoreQuiz 测验评分
func (h *APIHandler) ScoreQuiz(c *gin.Context) {
	var req model.ScoreQuizRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: model.ScoreQuiz(req.Questions, req.Answers)})
}

// ListFlows 流程列表及输入输出结构
func (h *APIHandler) ListFlows(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.analysis.ListFlows()})
}

// ExecuteFlow 按名称执行流程
func (h *APIHandler) ExecuteFlow(c *gin.Context) {
	raw, err := io.ReadAll(h.limitBody(c))
	if err != nil {
		h.fail(c, bodyError(err))
		return
	}
	if !h.checkAttachments(c, collectDocuments(raw)) {
		return
	}
	res, err := h.analysis.ExecuteFlow(c.Request.Context(), middleware.GetUserID(c), c.Param("name"), raw)
	h.respond(c, res, err)
}

// ListRecords 当前用户的历史记录
func (h *APIHandler) ListRecords(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		h.unauthorized(c)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.analysis.Records(c.Request.Context(), userID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetRecord 单条历史记录
func (h *APIHandler) GetRecord(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		h.unauthorized(c)
		return
	}

	rec, err := h.analysis.Record(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// Health 健康检查
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "UP",
		"service":         c.GetString("service_name"),
		"flows":           len(h.analysis.ListFlows()),
		"tutor_sessions":  h.sessions.GetOnlineCount(),
		"max_attachments": h.limits.MaxAttachments,
	})
}

func (h *APIHandler) bind(c *gin.Context, v any) bool {
	c.Request.Body = h.limitBody(c)
	if err := c.ShouldBindJSON(v); err != nil {
		h.fail(c, bodyError(err))
		return false
	}
	return true
}

// limitBody 请求体上限按附件数量和单文件大小估算（base64 膨胀 4/3）
func (h *APIHandler) limitBody(c *gin.Context) io.ReadCloser {
	limit := int64(h.limits.MaxAttachments)*h.limits.MaxFileBytes/3*4 + 1<<20
	return http.MaxBytesReader(c.Writer, c.Request.Body, limit)
}

// checkAttachments 附件数量与单个附件大小限制
func (h *APIHandler) checkAttachments(c *gin.Context, refs []string) bool {
	if err := checkAttachments(h.limits, refs); err != nil {
		h.fail(c, err)
		return false
	}
	return true
}

func checkAttachments(limits config.LimitsConfig, refs []string) error {
	if limits.MaxAttachments > 0 && len(refs) > limits.MaxAttachments {
		return apperr.NewInput("documents", fmt.Sprintf("最多 %d 个附件，实际 %d 个", limits.MaxAttachments, len(refs)))
	}
	for i, ref := range refs {
		d, err := datauri.Parse(ref)
		if err != nil {
			// 格式问题由结构校验报告
			continue
		}
		if limits.MaxFileBytes > 0 && int64(d.Size()) > limits.MaxFileBytes {
			return apperr.NewInput(fmt.Sprintf("documents[%d]", i),
				fmt.Sprintf("超过大小限制 %d 字节", limits.MaxFileBytes))
		}
	}
	return nil
}

// collectDocuments 找出任意 JSON 中的 data URI
func collectDocuments(raw []byte) []string {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil
	}

	var refs []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			for _, child := range t {
				walk(child)
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		case string:
			if strings.HasPrefix(t, "data:") {
				refs = append(refs, t)
			}
		}
	}
	walk(tree)
	return refs
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.NewInput("$", fmt.Sprintf("请求体超过 %d 字节", maxErr.Limit))
	}
	return &apperr.SchemaViolation{
		Stage:      apperr.StageInput,
		Field:      "$",
		Constraint: "json",
		Detail:     err.Error(),
	}
}

func (h *APIHandler) respond(c *gin.Context, res *service.Result, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{
		Success:  true,
		Data:     res.Data,
		RecordID: res.RecordID,
		Warning:  res.Warning,
	})
}

func (h *APIHandler) unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Error: &model.APIError{Message: "需要登录后查看历史记录", Type: "unauthorized"},
	})
}

func (h *APIHandler) fail(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("请求处理失败",
			zap.String("path", c.FullPath()),
			zap.String("requestId", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	c.JSON(status, Response{Error: body})
}

// errorBody 错误对应的状态码和响应体
func errorBody(err error) (int, *model.APIError) {
	var flowErr *flow.ErrNotFound
	switch {
	case errors.As(err, &flowErr):
		return http.StatusNotFound, &model.APIError{Message: flowErr.Error(), Type: "not_found"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, &model.APIError{Message: err.Error(), Type: "not_found"}
	}
	return apperr.HTTPStatus(err), &model.APIError{
		Message: apperr.Message(err),
		Type:    apperr.Kind(err),
		Field:   apperr.Field(err),
	}
}
