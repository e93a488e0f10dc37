// Package cfgstruct 把配置结构体绑定到命令行参数，
// 字段通过 help、default、releaseDefault、devDefault 标签描述
package cfgstruct

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/pflag"
)

// BindOpt 绑定选项
type BindOpt struct {
	isDev *bool
	varfn func(vars map[string]string)
}

// ConfDir 设置 $CONFDIR，同时作为 $ROOT 的默认值
func ConfDir(path string) BindOpt {
	val := filepath.Clean(os.ExpandEnv(path))
	return BindOpt{varfn: func(vars map[string]string) {
		vars["CONFDIR"] = val
		if _, ok := vars["ROOT"]; !ok {
			vars["ROOT"] = val
		}
	}}
}

// ConfigVar 设置默认值中可以引用的变量
func ConfigVar(name, val string) BindOpt {
	name = strings.ToUpper(name)
	return BindOpt{varfn: func(vars map[string]string) {
		vars[name] = val
	}}
}

// UseDevDefaults 使用 devDefault 标签
func UseDevDefaults() BindOpt {
	dev := true
	return BindOpt{isDev: &dev}
}

// UseReleaseDefaults 使用 releaseDefault 标签
func UseReleaseDefaults() BindOpt {
	dev := false
	return BindOpt{isDev: &dev}
}

// Bind 按结构体字段注册参数，config 必须是结构体指针。
// 嵌套结构体的字段名用 . 连接: db.max-idle-conn
func Bind(flags *pflag.FlagSet, config any, opts ...BindOpt) {
	isDev := true
	vars := map[string]string{}
	for _, opt := range opts {
		if opt.varfn != nil {
			opt.varfn(vars)
		}
		if opt.isDev != nil {
			isDev = *opt.isDev
		}
	}
	ptr := reflect.ValueOf(config)
	if ptr.Kind() != reflect.Ptr || ptr.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("invalid config type: %T, expected pointer to struct", config))
	}
	bindConfig(flags, "", ptr.Elem(), vars, isDev)
}

func bindConfig(flags *pflag.FlagSet, prefix string, val reflect.Value, vars map[string]string, isDev bool) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldVal := val.Field(i)
		name := prefix + hyphenate(snakeCase(field.Name))

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			bindConfig(flags, name+".", fieldVal, vars, isDev)
			continue
		}

		help := field.Tag.Get("help")
		def := getDefault(field.Tag, isDev)
		def = os.Expand(def, func(key string) string {
			if v, ok := vars[key]; ok {
				return v
			}
			return os.Getenv(key)
		})
		ptr := fieldVal.Addr().Interface()

		switch field.Type {
		case reflect.TypeOf(time.Duration(0)):
			flags.DurationVar(ptr.(*time.Duration), name, mustDuration(name, def), help)
		case reflect.TypeOf([]string(nil)):
			var list []string
			if def != "" {
				list = strings.Split(def, ",")
			}
			flags.StringSliceVar(ptr.(*[]string), name, list, help)
		default:
			switch field.Type.Kind() {
			case reflect.String:
				flags.StringVar(ptr.(*string), name, def, help)
			case reflect.Bool:
				flags.BoolVar(ptr.(*bool), name, def == "true", help)
			case reflect.Int:
				flags.IntVar(ptr.(*int), name, int(mustInt(name, def, 0)), help)
			case reflect.Int64:
				flags.Int64Var(ptr.(*int64), name, mustInt(name, def, 64), help)
			case reflect.Uint:
				flags.UintVar(ptr.(*uint), name, uint(mustUint(name, def)), help)
			case reflect.Float64:
				flags.Float64Var(ptr.(*float64), name, mustFloat(name, def), help)
			default:
				panic(fmt.Sprintf("invalid field type: %s", field.Type))
			}
		}
		if field.Tag.Get("internal") == "true" {
			_ = flags.MarkHidden(name)
		}
	}
}

func getDefault(tag reflect.StructTag, isDev bool) string {
	key := "releaseDefault"
	if isDev {
		key = "devDefault"
	}
	if v, ok := tag.Lookup(key); ok {
		return v
	}
	return tag.Get("default")
}

func mustDuration(name, s string) time.Duration {
	if s == "" || s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("invalid default for %s: %v", name, err))
	}
	return d
}

func mustInt(name, s string, bits int) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 0, bits)
	if err != nil {
		panic(fmt.Sprintf("invalid default for %s: %v", name, err))
	}
	return v
}

func mustUint(name, s string) uint64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 0, 0)
	if err != nil {
		panic(fmt.Sprintf("invalid default for %s: %v", name, err))
	}
	return v
}

func mustFloat(name, s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid default for %s: %v", name, err))
	}
	return v
}

// snakeCase MaxIdleConn -> max_idle_conn, AccessKeyId -> access_key_id
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hyphenate(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

// FindConfigDirParam 在解析命令之前从 os.Args 中找出 --config-dir，
// 绑定参数时默认值里的 $CONFDIR 需要用到
func FindConfigDirParam() string {
	return FindFlagEarly("config-dir")
}

// FindFlagEarly 提前读取一个字符串参数，未知参数忽略
func FindFlagEarly(name string) string {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)
	val := flags.String(name, "", "")
	flags.Usage = func() {}
	_ = flags.Parse(os.Args[1:])
	return *val
}
