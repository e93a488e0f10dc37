package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/opdss/tabexport/contracts/locker"
	"github.com/opdss/tabexport/jwt"
	"github.com/opdss/tabexport/process"
	"github.com/opdss/tabexport/redis"
	httpserver "github.com/opdss/tabexport/server/http"
	"github.com/opdss/tabexport/storage"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// serveConfig serve 和 setup 命令共用
type serveConfig struct {
	Http       httpserver.Config
	Export     httpserver.ExportConfig
	Jwt        jwt.Config
	Storage    storage.Config
	Redis      redis.Config
	UploadLock bool `help:"上传时使用 redis 锁" default:"false"`
}

// tokenConfig token 命令的参数
type tokenConfig struct {
	UserId   int64  `help:"用户id" default:"0"`
	Username string `help:"用户名" default:""`
	Refresh  bool   `help:"同时签发 refresh token" default:"false"`
	Jwt      jwt.Config
}

var (
	serveConf serveConfig
	tokenConf tokenConfig

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the export http api",
		RunE:  cmdServe,
	}
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "issue a jwt for the export api",
		RunE:  cmdToken,
	}
	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "write the serve configuration to config-dir",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}
)

func cmdServe(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	logger := zap.L()

	if !isDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), httpserver.Logger(logger), httpserver.LimitBody(serveConf.Http.MaxBodySize))
	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	fs, err := storage.New(serveConf.Storage)
	if err != nil {
		return err
	}
	//本地存储的文件由当前服务提供下载
	if local, ok := fs.(*storage.Local); ok {
		engine.StaticFS("/files", gin.Dir(local.Root(), false))
	}
	opts := []httpserver.ExportOption{httpserver.WithStorage(fs)}

	if serveConf.UploadLock {
		client, rerr := redis.NewRedis(serveConf.Redis)
		if rerr != nil {
			return rerr
		}
		defer func() { err = errs.Combine(err, client.Close()) }()
		opts = append(opts, httpserver.WithLockers(func(key string) locker.Locker {
			return redis.NewLocker(key, client)
		}))
	}

	api := engine.Group("/api")
	if serveConf.Jwt.Key != "" {
		api.Use(httpserver.JwtAuth(jwt.NewJwt(serveConf.Jwt)))
	} else {
		logger.Warn("jwt key is empty, export api is not authenticated")
	}
	httpserver.NewExportHandler(logger, serveConf.Export, opts...).Register(api)

	return httpserver.NewServer(engine, logger, serveConf.Http).Run(ctx)
}

func cmdToken(cmd *cobra.Command, args []string) error {
	j := jwt.NewJwt(tokenConf.Jwt)
	payload := jwt.TokenPayload{UserId: tokenConf.UserId, Username: tokenConf.Username}
	token, exp, err := j.CreateToken(payload)
	if err != nil {
		return err
	}
	fmt.Printf("token: %s\nexpire: %d\n", token, exp)
	if tokenConf.Refresh {
		refresh, exp, err := j.CreateRefreshToken(payload)
		if err != nil {
			return err
		}
		fmt.Printf("refresh_token: %s\nexpire: %d\n", refresh, exp)
	}
	return nil
}

func cmdSetup(cmd *cobra.Command, args []string) error {
	outfile := filepath.Join(confDir, process.DefaultCfgFilename)
	if err := process.SaveConfig(cmd, outfile, nil); err != nil {
		return err
	}
	fmt.Println(outfile)
	return nil
}
