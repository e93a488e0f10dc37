package main

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/opdss/tabexport/cfgstruct"
	"github.com/opdss/tabexport/process"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tabexport",
		Short: "export tables to xlsx and csv",
	}

	confDir string
	logConf struct {
		Log process.LogConfig
	}
)

func defaultConfDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tabexport"
	}
	return filepath.Join(home, ".tabexport")
}

// isDev TABEXPORT_ENV=dev 时使用开发环境默认值
func isDev() bool {
	return os.Getenv("TABEXPORT_ENV") == "dev"
}

func bindOpts() []cfgstruct.BindOpt {
	opts := []cfgstruct.BindOpt{cfgstruct.ConfDir(confDir)}
	if isDev() {
		return append(opts, cfgstruct.UseDevDefaults())
	}
	return append(opts, cfgstruct.UseReleaseDefaults())
}

// bind 每个子命令都带上日志配置
func bind(cmd *cobra.Command, config any) {
	process.Bind(cmd, config, bindOpts()...)
	process.Bind(cmd, &logConf, bindOpts()...)
	rootCmd.AddCommand(cmd)
}

func parseComma(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, errs.New("csv comma must be a single character: %q", s)
	}
	return r, nil
}

func main() {
	confDir = defaultConfDir()
	if dir := cfgstruct.FindConfigDirParam(); dir != "" {
		confDir = dir
	}
	rootCmd.PersistentFlags().StringVar(&confDir, "config-dir", confDir, "配置文件目录")

	bind(exportCmd, &exportConf)
	bind(headerCmd, &headerConf)
	bind(serveCmd, &serveConf)
	bind(tokenCmd, &tokenConf)
	bind(setupCmd, &serveConf)

	process.ExecWithOptions(rootCmd, process.ExecOptions{
		LoadConfig: process.LoadConfig,
		LoggerFactory: func(l *zap.Logger) *zap.Logger {
			logger, err := process.NewLogger(logConf.Log)
			if err != nil {
				l.Warn("invalid log config, using default logger", zap.Error(err))
				return l
			}
			return logger
		},
	})
}
