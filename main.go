package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/cache"
	"github.com/any-hub/image-hub/internal/config"
	"github.com/any-hub/image-hub/internal/ingest"
	"github.com/any-hub/image-hub/internal/logging"
	"github.com/any-hub/image-hub/internal/server"
	"github.com/any-hub/image-hub/internal/server/routes"
	"github.com/any-hub/image-hub/internal/storage"
	"github.com/any-hub/image-hub/internal/transform"
	"github.com/any-hub/image-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

const shutdownTimeout = 10 * time.Second

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stdErr, "加载 .env 失败: %v\n", err)
		return 1
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_backend"] = cfg.Global.CacheBackend
		fields["storage_path"] = cfg.Global.StoragePath
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 日志 → 图片目录 → 渲染缓存 → 渲染引擎 → 上传流水线 → Fiber server。
	store, err := storage.NewStore(cfg.Global.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化图片目录失败: %v\n", err)
		return 1
	}

	backend, err := cache.New(cfg.Global.CacheBackend, cache.Options{
		TTL:      cfg.Global.CacheTTL.DurationValue(),
		Capacity: cfg.Global.CacheCapacity,
		RedisURL: cfg.Global.RedisURL,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化渲染缓存失败: %v\n", err)
		return 1
	}
	loader, err := cache.NewLoader(backend, logger)
	if err != nil {
		_ = backend.Close()
		fmt.Fprintf(stdErr, "初始化渲染缓存失败: %v\n", err)
		return 1
	}
	defer loader.Close()

	engine := transform.NewEngine(store, cfg.Global.RenderConcurrency)
	pipeline, err := ingest.NewPipeline(store, ingest.Options{TrustedOrigin: cfg.Global.TrustedOrigin})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化上传流水线失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_backend"] = backend.Name()
	fields["cache_ttl_seconds"] = cfg.CacheTTLSeconds()
	fields["storage_path"] = store.Root()
	fields["trusted_origin"] = pipeline.TrustedOrigin()
	fields["debug"] = cfg.Global.DebugMode
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := startHTTPServer(ctx, cfg, services{
		loader:   loader,
		renderer: engine,
		pipeline: pipeline,
	}, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "TOML 配置文件路径（可被 IMAGE_HUB_CONFIG 指定，缺省时仅使用环境变量）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("IMAGE_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// services 是 HTTP 层依赖的业务组件。
type services struct {
	loader   *cache.Loader
	renderer transform.Renderer
	pipeline *ingest.Pipeline
}

func startHTTPServer(ctx context.Context, cfg *config.Config, svc services, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:       logger,
		BodyLimit:    int(cfg.Global.MaxUploadSize),
		AllowOrigins: cfg.Global.CORSAllowOrigins,
	})
	if err != nil {
		return err
	}

	if err := routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		CacheBackend: svc.loader.Backend().Name(),
	}); err != nil {
		return err
	}
	if err := routes.RegisterUploadRoutes(app, routes.UploadOptions{
		Logger:   logger,
		Pipeline: svc.pipeline,
	}); err != nil {
		return err
	}
	if err := routes.RegisterRenderRoutes(app, routes.RenderOptions{
		Logger:   logger,
		Loader:   svc.loader,
		Renderer: svc.renderer,
		CacheTTL: cfg.Global.CacheTTL.DurationValue(),
	}); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.WithField("action", "shutdown").Info("收到退出信号，停止接收新请求")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.WithField("action", "shutdown").WithError(err).Warn("关闭 Fiber 服务失败")
		}
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	err = app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
