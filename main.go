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

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mobipaper/mobicache/internal/cache"
	"github.com/mobipaper/mobicache/internal/config"
	"github.com/mobipaper/mobicache/internal/logging"
	"github.com/mobipaper/mobicache/internal/server"
	"github.com/mobipaper/mobicache/internal/server/routes"
	"github.com/mobipaper/mobicache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	purgeOnly   bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

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
		fields["artifacts"] = cfg.RecognizedTags()
		fields["max_size_mb"] = cfg.Global.MaxCacheSizeMB
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	store := newStore(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.purgeOnly {
		return purgeOnce(ctx, store, logger, opts.configPath)
	}

	janitor := cache.NewJanitor(store, cfg.Global.PurgeInterval.DurationValue(), logging.Component(logger, "janitor"))
	if cfg.Global.PurgeOnStart {
		janitor.RunOnce(ctx)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	for k, v := range logging.BudgetFields(store.Dir(), store.Size(), store.MaxSize()) {
		fields[k] = v
	}
	logger.WithFields(fields).Info("配置加载完成")

	if err := serve(ctx, cfg, store, janitor, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// newStore 按配置创建缓存；目录不可用时记录告警并以未配置状态继续运行，
// 此时所有缓存操作退化为 miss/no-op。
func newStore(cfg *config.Config, logger *logrus.Logger) *cache.Store {
	store := cache.NewStore(
		cache.WithDirName(cfg.Global.CacheDirName),
		cache.WithRecognizedTags(cfg.RecognizedTags()...),
		cache.WithLogger(logging.Component(logger, "cache")),
	)
	if err := store.Configure(cfg.Global.StoragePath, cfg.Global.MaxCacheSizeMB); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"action": "cache_configure",
			"path":   cfg.Global.StoragePath,
		}).Warn("cache_unavailable")
	}
	return store
}

// purgeOnce 执行一次清理后退出；未配置的缓存视为失败。
func purgeOnce(ctx context.Context, store *cache.Store, logger *logrus.Logger, configPath string) int {
	result, err := store.Purge(ctx)
	if err != nil {
		fmt.Fprintf(stdErr, "缓存清理失败: %v\n", err)
		return 1
	}

	fields := logging.PurgeFields(result)
	fields["configPath"] = configPath
	logger.WithFields(fields).Info("缓存清理完成")
	fmt.Fprintf(stdOut, "removed=%d failed=%d freed_mb=%.3f size_mb=%.3f\n",
		result.Removed, result.Failed, result.FreedMB, result.SizeAfterMB)
	if result.Failed > 0 {
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("mobicache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		purgeOnly  bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 MOBICACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&purgeOnly, "purge", false, "执行一次缓存清理后退出")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("MOBICACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		purgeOnly:   purgeOnly,
	}, nil
}

// serve 同时运行 Fiber 管理端口与周期清理，任一失败或收到信号时整体退出。
func serve(ctx context.Context, cfg *config.Config, store *cache.Store, janitor *cache.Janitor, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Store:      store,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterEntryRoutes(app, store, logger)
	routes.RegisterDiagnosticsRoutes(app, store, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return janitor.Loop(gctx)
	})
	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"action": "listen",
			"port":   port,
		}).Info("Fiber 服务启动")
		return app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := app.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}
