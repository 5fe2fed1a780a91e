package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/eschoolbooks/neox-go/pkg/datauri"
)

// 附件占位符使用私有区字符包裹，避免和用户文本冲突
const (
	markerOpen  = "\uE000media:"
	markerClose = "\uE001"
)

var markerRe = regexp.MustCompile("\uE000media:(\\d+)\uE001")

// Part 提示词片段：文本或附件
type Part struct {
	Text  string
	Media *datauri.DataURI
}

// Prompt 渲染后的提示词
type Prompt struct {
	Name        string
	System      string
	Text        string
	Attachments []datauri.DataURI
}

// Template 编译后的提示词模板
type Template struct {
	Name   string
	system *template.Template
	user   *template.Template
}

var baseFuncs = template.FuncMap{
	// media 在渲染时替换为真实实现
	"media": func(string) (string, error) { return "", nil },
	"join":  strings.Join,
	"inc":   func(i int) int { return i + 1 },
}

// Compile 编译模板，system 与 user 都是 text/template 语法
func Compile(name, system, user string) (*Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("模板名称不能为空")
	}
	sysT, err := template.New(name + ".system").Funcs(baseFuncs).Option("missingkey=zero").Parse(system)
	if err != nil {
		return nil, fmt.Errorf("%s system 模板解析失败: %w", name, err)
	}
	userT, err := template.New(name + ".user").Funcs(baseFuncs).Option("missingkey=zero").Parse(user)
	if err != nil {
		return nil, fmt.Errorf("%s user 模板解析失败: %w", name, err)
	}
	return &Template{Name: name, system: sysT, user: userT}, nil
}

// MustCompile 编译失败直接 panic，用于包级别的静态模板
func MustCompile(name, system, user string) *Template {
	t, err := Compile(name, system, user)
	if err != nil {
		panic(err)
	}
	return t
}

// Render 渲染模板；相同输入得到完全相同的提示词
//
// 数据中出现的占位符字符会被去掉，只有 media 生成的占位符会成为附件
func (t *Template) Render(data any) (*Prompt, error) {
	var (
		attachments []datauri.DataURI
		userOut     markerWriter
	)
	media := func(ref string) (string, error) {
		d, err := datauri.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("附件 #%d 无效: %w", len(attachments)+1, err)
		}
		attachments = append(attachments, d)
		marker := markerOpen + strconv.Itoa(len(attachments)-1) + markerClose
		userOut.expect(marker)
		return marker, nil
	}

	userT, err := t.user.Clone()
	if err != nil {
		return nil, fmt.Errorf("%s 模板复制失败: %w", t.Name, err)
	}
	userT.Funcs(template.FuncMap{"media": media})

	var systemOut markerWriter
	if err := t.system.Execute(&systemOut, data); err != nil {
		return nil, fmt.Errorf("%s system 渲染失败: %w", t.Name, err)
	}
	if err := userT.Execute(&userOut, data); err != nil {
		return nil, fmt.Errorf("%s user 渲染失败: %w", t.Name, err)
	}

	return &Prompt{
		Name:        t.Name,
		System:      systemOut.String(),
		Text:        userOut.String(),
		Attachments: attachments,
	}, nil
}

// markerWriter 收集模板输出并去掉占位符字符
//
// text/template 把每个动作的结果一次性写出，media 返回后紧接着的那次写入就是它生成的占位符。
type markerWriter struct {
	buf     strings.Builder
	pending string
}

func (w *markerWriter) expect(marker string) {
	w.pending = marker
}

func (w *markerWriter) Write(p []byte) (int, error) {
	s := string(p)
	if w.pending != "" && s == w.pending {
		w.pending = ""
		w.buf.WriteString(s)
		return len(p), nil
	}
	w.pending = ""
	w.buf.WriteString(stripMarkers(s))
	return len(p), nil
}

func (w *markerWriter) String() string {
	return strings.TrimSpace(w.buf.String())
}

func stripMarkers(s string) string {
	if !strings.ContainsAny(s, markerOpen[:3]+markerClose) {
		return s
	}
	return strings.NewReplacer(markerOpen[:3], "", markerClose, "").Replace(s)
}

// Parts 按占位符把提示词切分成有序的文本与附件片段
func (p *Prompt) Parts() []Part {
	var parts []Part
	last := 0
	for _, m := range markerRe.FindAllStringSubmatchIndex(p.Text, -1) {
		idx, err := strconv.Atoi(p.Text[m[2]:m[3]])
		if err != nil || idx >= len(p.Attachments) {
			continue
		}
		if text := strings.TrimSpace(p.Text[last:m[0]]); text != "" {
			parts = append(parts, Part{Text: text})
		}
		media := p.Attachments[idx]
		parts = append(parts, Part{Media: &media})
		last = m[1]
	}
	if text := strings.TrimSpace(p.Text[last:]); text != "" {
		parts = append(parts, Part{Text: text})
	}
	return parts
}

// Readable 将占位符替换为可读标记，用于日志和调试
func (p *Prompt) Readable() string {
	return markerRe.ReplaceAllStringFunc(p.Text, func(m string) string {
		idx := strings.TrimSuffix(strings.TrimPrefix(m, markerOpen), markerClose)
		return "[attachment " + idx + "]"
	})
}
