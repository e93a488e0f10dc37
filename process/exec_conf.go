package process

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/opdss/tabexport/cfgstruct"
	"github.com/opdss/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"github.com/zeebo/structs"
	"go.uber.org/zap"
)

// DefaultCfgFilename is the default filename used for storing a configuration.
const DefaultCfgFilename = "config.yaml"

// DefaultEnvPrefix 环境变量前缀，TABEXPORT_DB_DSN 对应 --db.dsn
const DefaultEnvPrefix = "TABEXPORT"

var (
	commandMtx sync.Mutex
	contexts   = map[*cobra.Command]context.Context{}
	cancels    = map[*cobra.Command]context.CancelFunc{}
	configs    = map[*cobra.Command][]any{}
	vipers     = map[*cobra.Command]*viper.Viper{}
)

// Bind sets flags on a command that match the configuration struct
// 'config'. It ensures that the config has all of the values loaded into it
// when the command runs.
func Bind(cmd *cobra.Command, config any, opts ...cfgstruct.BindOpt) {
	commandMtx.Lock()
	defer commandMtx.Unlock()

	cfgstruct.Bind(cmd.Flags(), config, opts...)
	configs[cmd] = append(configs[cmd], config)
}

// ExecOptions contains options for ExecWithOptions.
type ExecOptions struct {
	// FailOnValueError 配置文件中的值无法解析时直接失败
	FailOnValueError bool

	LoadConfig    func(cmd *cobra.Command, vip *viper.Viper) error
	LoggerFactory func(*zap.Logger) *zap.Logger
}

// Exec runs a Cobra command. If a "config-dir" flag is defined it will be parsed
// and loaded using viper.
func Exec(cmd *cobra.Command) {
	ExecWithOptions(cmd, ExecOptions{LoadConfig: LoadConfig})
}

// ExecWithOptions runs a Cobra command with custom options.
func ExecWithOptions(cmd *cobra.Command, opts ExecOptions) {
	if opts.LoadConfig == nil {
		opts.LoadConfig = LoadConfig
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "version",
		Short:       "output the version's build information, if any",
		RunE:        cmdVersion,
		Annotations: map[string]string{"type": "setup"}})

	exe, err := os.Executable()
	if err == nil && cmd.Use == "" {
		cmd.Use = filepath.Base(exe)
	}

	//错误由 cleanup 统一输出
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	cleanup(cmd, &opts)
	if err = cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Ctx returns the appropriate context.Context for ExecuteWithConfig commands.
// SIGINT/SIGTERM 会取消 context，正在进行的导出随之中止
func Ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	commandMtx.Lock()
	defer commandMtx.Unlock()

	ctx := contexts[cmd]
	if ctx == nil {
		ctx = context.Background()
		contexts[cmd] = ctx
	}

	cancel := cancels[cmd]
	if cancel == nil {
		ctx, cancel = context.WithCancel(ctx)
		contexts[cmd] = ctx
		cancels[cmd] = cancel

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-c:
				log.Printf("Got a signal from the OS: %q", sig)
				cancel()
			case <-ctx.Done():
			}
			signal.Stop(c)
		}()
	}

	return ctx, cancel
}

// Viper returns the appropriate *viper.Viper for the command, creating if necessary.
func Viper(cmd *cobra.Command) (*viper.Viper, error) {
	return ViperWithCustomConfig(cmd, LoadConfig)
}

// ViperWithCustomConfig returns the appropriate *viper.Viper for the command, creating if necessary. Custom
// config load logic can be defined with "loadConfig" parameter.
func ViperWithCustomConfig(cmd *cobra.Command, loadConfig func(cmd *cobra.Command, vip *viper.Viper) error) (*viper.Viper, error) {
	commandMtx.Lock()
	defer commandMtx.Unlock()

	if vip := vipers[cmd]; vip != nil {
		return vip, nil
	}

	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	prefix := os.Getenv("ENV_PREFIX")
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	vip.SetEnvPrefix(prefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if err := loadConfig(cmd, vip); err != nil {
		return nil, err
	}

	vipers[cmd] = vip
	return vip, nil
}

// LoadConfig loads configuration into *viper.Viper from file specified with "config-dir" flag.
func LoadConfig(cmd *cobra.Command, vip *viper.Viper) error {
	cfgFlag := cmd.Flags().Lookup("config-dir")
	if cfgFlag != nil && cfgFlag.Value.String() != "" {
		path := filepath.Join(os.ExpandEnv(cfgFlag.Value.String()), DefaultCfgFilename)
		if fileExists(path) {
			setupCommand := cmd.Annotations["type"] == "setup"
			vip.SetConfigFile(path)
			if err := vip.ReadInConfig(); err != nil && !setupCommand {
				return err
			}
		}
	}
	return nil
}

// applyConfig 把 viper 中的配置写回绑定的结构体和参数，返回无法识别和无法解析的 key
func applyConfig(cmd *cobra.Command, vip *viper.Viper) (missing, broken []string) {
	commandMtx.Lock()
	configValues := configs[cmd]
	commandMtx.Unlock()

	var (
		brokenKeys  = map[string]struct{}{}
		missingKeys = map[string]struct{}{}
		usedKeys    = map[string]struct{}{}
		allSettings = vip.AllSettings()
	)

	for _, config := range configValues {
		res := structs.Decode(allSettings, config)
		for key := range res.Used {
			usedKeys[key] = struct{}{}
		}
		for key := range res.Missing {
			missingKeys[key] = struct{}{}
		}
		for key := range res.Broken {
			brokenKeys[key] = struct{}{}
		}
	}

	// Propagate keys that are missing to flags, and remove any used keys
	// from the missing set.
	for key := range missingKeys {
		if f := cmd.Flags().Lookup(key); f != nil {
			val := vip.GetString(key)
			err := f.Value.Set(val)
			f.Changed = val != f.DefValue
			if err != nil {
				brokenKeys[key] = struct{}{}
			} else {
				usedKeys[key] = struct{}{}
			}
		} else if f := flag.Lookup(key); f != nil {
			if err := f.Value.Set(vip.GetString(key)); err != nil {
				brokenKeys[key] = struct{}{}
			} else {
				usedKeys[key] = struct{}{}
			}
		}
	}
	for key := range missingKeys {
		if _, ok := usedKeys[key]; !ok {
			missing = append(missing, key)
		}
	}
	for key := range brokenKeys {
		broken = append(broken, key)
	}
	return missing, broken
}

func cleanup(cmd *cobra.Command, opts *ExecOptions) {
	for _, ccmd := range cmd.Commands() {
		cleanup(ccmd, opts)
	}
	if cmd.Run != nil {
		panic("Please use cobra's RunE instead of Run")
	}
	internalRun := cmd.RunE
	if internalRun == nil {
		return
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		vip, err := ViperWithCustomConfig(cmd, opts.LoadConfig)
		if err != nil {
			return err
		}
		missingKeys, brokenKeys := applyConfig(cmd, vip)

		logger := zap.L()
		if opts.LoggerFactory != nil {
			logger = opts.LoggerFactory(logger)
		}

		if vip.ConfigFileUsed() != "" {
			path, err := filepath.Abs(vip.ConfigFileUsed())
			if err != nil {
				path = vip.ConfigFileUsed()
				logger.Debug("unable to resolve path", zap.Error(err))
			}
			logger.Info("Configuration loaded", zap.String("Location", path))
		}

		defer func() { _ = logger.Sync() }()
		defer zap.ReplaceGlobals(logger)()
		defer zap.RedirectStdLog(logger)()

		// okay now that logging is working, inform about the broken keys
		if cmd.Annotations["type"] != "helper" {
			for _, key := range missingKeys {
				logger.Info("Invalid configuration file key", zap.String("Key", key))
			}
		}
		for _, key := range brokenKeys {
			if opts.FailOnValueError {
				return errs.New("Invalid configuration file value for key: %s", key)
			}
			logger.Info("Invalid configuration file value for key", zap.String("Key", key))
		}

		defer func() {
			commandMtx.Lock()
			if cancel := cancels[cmd]; cancel != nil {
				cancel()
			}
			delete(contexts, cmd)
			delete(cancels, cmd)
			commandMtx.Unlock()
		}()

		if err = internalRun(cmd, args); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "Error:", err.Error())
			logger.Error("Unrecoverable error", zap.Error(err))
			return err
		}
		return nil
	}
}

func cmdVersion(cmd *cobra.Command, args []string) (err error) {
	fmt.Println(version.Build)
	return nil
}
