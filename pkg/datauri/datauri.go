package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotDataURI   = errors.New("不是 data URI")
	ErrMissingMIME  = errors.New("data URI 缺少 MIME 类型")
	ErrNotBase64    = errors.New("data URI 必须使用 base64 编码")
	ErrEmptyPayload = errors.New("data URI 内容为空")
	ErrFileTooLarge = errors.New("文件超过大小限制")
)

// DataURI 解析后的 data URI（data:<mime>;base64,<payload>）
type DataURI struct {
	MIMEType string
	Payload  string // base64 编码内容
}

// Summary 不含内容的附件摘要，用于持久化与日志
type Summary struct {
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// Parse 解析 data URI
func Parse(s string) (DataURI, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return DataURI{}, ErrNotDataURI
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, ErrNotDataURI
	}

	mime, enc, ok := strings.Cut(header, ";")
	if !ok || enc != "base64" {
		return DataURI{}, ErrNotBase64
	}
	if mime == "" || !strings.Contains(mime, "/") {
		return DataURI{}, ErrMissingMIME
	}
	if payload == "" {
		return DataURI{}, ErrEmptyPayload
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", ErrNotBase64, err)
	}

	return DataURI{MIMEType: strings.ToLower(mime), Payload: payload}, nil
}

// Encode 将二进制内容编码为 data URI
func Encode(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// FromFile 读取文件并编码为 data URI，maxBytes <= 0 表示不限制
func FromFile(path string, maxBytes int64) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return "", fmt.Errorf("%s: %w (%d > %d)", path, ErrFileTooLarge, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyPayload)
	}

	mime := mimetype.Detect(data)
	// 去掉 charset 等参数，data URI 头部只保留类型
	mt, _, _ := strings.Cut(mime.String(), ";")
	return Encode(mt, data), nil
}

// String 还原为 data URI 文本
func (d DataURI) String() string {
	return "data:" + d.MIMEType + ";base64," + d.Payload
}

// Size 解码后的字节数
func (d DataURI) Size() int {
	return base64.StdEncoding.DecodedLen(len(d.Payload)) - strings.Count(d.Payload[max(0, len(d.Payload)-2):], "=")
}

// Bytes 解码内容
func (d DataURI) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(d.Payload)
}

// Summary 生成摘要
func (d DataURI) Summary() Summary {
	return Summary{MIMEType: d.MIMEType, Size: d.Size()}
}

// IsImage 是否为图片
func (d DataURI) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

// Summarize 批量生成摘要，无法解析的引用记为 invalid
func Summarize(refs []string) []Summary {
	out := make([]Summary, 0, len(refs))
	for _, ref := range refs {
		d, err := Parse(ref)
		if err != nil {
			out = append(out, Summary{MIMEType: "invalid"})
			continue
		}
		out = append(out, d.Summary())
	}
	return out
}
