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

	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/client"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/marketplace"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/prefs"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/file"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/memory"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/redis"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

const usage = `usage: wbadmin [-debug] <command> [args]

commands:
  login -u <username> [-p <password>]   (password falls back to WBADMIN_PASSWORD)
  logout
  status
  whoami
  creds list|get|create|update|patch|delete|import <marketplace> ...
  sales [-marketplace m] [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  export [-marketplace m] [-from ...] [-to ...] [-dir .] [-name file.csv]
  theme [get|set light|dark|toggle]
`

type app struct {
	client *client.Client
	api    *marketplace.API
	prefs  *prefs.Preferences
	log    *zap.SugaredLogger
	out    io.Writer
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := util.NewZapLogger(*debug)
	defer func() { _ = logger.Sync() }()

	cfg := util.NewClientConfig()
	store, cleanup, err := openStore(ctx, logger, cfg)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer cleanup()

	c, err := client.New(ctx, cfg.BaseURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger),
		client.WithSessionExpiredHandler(func(context.Context) {
			fmt.Fprintln(os.Stderr, "Session expired, run `wbadmin login` again.")
		}),
	)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	a := &app{
		client: c,
		api:    marketplace.New(c),
		prefs:  prefs.New(store),
		log:    logger,
		out:    os.Stdout,
	}

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, logger *zap.SugaredLogger, cfg *util.ClientConfig) (storage.KeyValueStore, func(), error) {
	noop := func() {}

	switch cfg.Store {
	case util.StoreMemory:
		return memory.NewKeyValueStore(), noop, nil
	case util.StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, errors.New("WBADMIN_STORE=redis requires REDIS_ADDR")
		}
		rdb, cleanup, err := util.NewRedisClient(ctx, logger, &util.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, nil, err
		}
		return redis.NewKeyValueStore(rdb, cfg.RedisPrefix), cleanup, nil
	default:
		s, err := file.Open(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}

func printError(err error) {
	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
		return
	}

	e, ok := client.AsError(err)
	if !ok {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}
	fmt.Fprintln(os.Stderr, "error:", e.Message)
	if summary := e.FieldSummary(); summary != "" {
		fmt.Fprintln(os.Stderr, summary)
	}
}
