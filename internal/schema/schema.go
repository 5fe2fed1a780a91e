package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/eschoolbooks/neox-go/pkg/datauri"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// Normalizer 输出在校验前做规整（去除首尾空白等）
type Normalizer interface {
	Normalize()
}

var (
	validate  = newValidator()
	reflector = &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	declared sync.Map // reflect.Type -> declaredSchema
)

type declaredSchema struct {
	name string
	raw  []byte
}

func newValidator() *validator.Validate {
	v := validator.New()

	// 错误里使用 JSON 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		default:
			return name
		}
	})

	// docref: 文档引用必须是带 MIME 类型的 base64 data URI
	_ = v.RegisterValidation("docref", func(fl validator.FieldLevel) bool {
		_, err := datauri.Parse(fl.Field().String())
		return err == nil
	})

	return v
}

// RegisterStructRule 注册结构体级别的校验规则（跨字段约束）
func RegisterStructRule(fn validator.StructLevelFunc, types ...any) {
	validate.RegisterStructValidation(fn, types...)
}

// Validate 按声明的约束校验值，失败时返回 *apperr.SchemaViolation
func Validate(stage apperr.Stage, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &apperr.SchemaViolation{
			Stage:      stage,
			Field:      fieldPath(fe.Namespace()),
			Constraint: constraint(fe),
			Detail:     fmt.Sprintf("共 %d 处不符合", len(verrs)),
		}
	}

	return &apperr.SchemaViolation{
		Stage:      stage,
		Field:      "$",
		Constraint: "object",
		Detail:     err.Error(),
	}
}

// Decode 将模型输出解析为强类型结果并校验，不做部分解析
func Decode(text string, out any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(out); err != nil {
		return decodeViolation(err)
	}
	if dec.More() {
		return &apperr.SchemaViolation{
			Stage:      apperr.StageOutput,
			Field:      "$",
			Constraint: "single_object",
			Detail:     "JSON 之后还有多余内容",
		}
	}

	if n, ok := out.(Normalizer); ok {
		n.Normalize()
	}
	return Validate(apperr.StageOutput, out)
}

// Reflect 生成类型对应的 JSON Schema（随请求声明给模型）
func Reflect(v any) (string, map[string]any, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return "", nil, fmt.Errorf("只支持结构体类型生成 schema: %T", v)
	}

	var ds declaredSchema
	if cached, ok := declared.Load(t); ok {
		ds = cached.(declaredSchema)
	} else {
		s := reflector.ReflectFromType(t)
		raw, err := json.Marshal(s)
		if err != nil {
			return "", nil, fmt.Errorf("序列化 schema 失败: %w", err)
		}
		ds = declaredSchema{name: snakeCase(t.Name()), raw: raw}
		declared.Store(t, ds)
	}

	// 每次返回独立副本，调用方可以放心修改
	var m map[string]any
	if err := json.Unmarshal(ds.raw, &m); err != nil {
		return "", nil, fmt.Errorf("解析 schema 失败: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	return ds.name, m, nil
}

func decodeViolation(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "$"
		}
		return &apperr.SchemaViolation{
			Stage:      apperr.StageOutput,
			Field:      field,
			Constraint: "type=" + jsonKind(typeErr.Type),
			Detail:     "实际为 " + typeErr.Value,
		}
	case errors.As(err, &syntaxErr):
		return &apperr.SchemaViolation{
			Stage:      apperr.StageOutput,
			Field:      "$",
			Constraint: "json",
			Detail:     syntaxErr.Error(),
		}
	default:
		return &apperr.SchemaViolation{
			Stage:      apperr.StageOutput,
			Field:      "$",
			Constraint: "json",
			Detail:     err.Error(),
		}
	}
}

// fieldPath 去掉命名空间里的根类型名：Quiz.questions[0].options -> questions[0].options
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	default:
		return "object"
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
