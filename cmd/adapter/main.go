package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gmocoin-adapter-go/config"
	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/infrastructure/logger"
	"gmocoin-adapter-go/inventory"
	"gmocoin-adapter-go/market"
	"gmocoin-adapter-go/metrics"
	"gmocoin-adapter-go/order"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()
	zl := lg.Logger

	if cfg.Metrics.Enabled {
		go metrics.StartMetricsServer(cfg.Metrics.Addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := gateway.NewTokenBucketLimiter(cfg.Gateway.RateLimitPerSec, cfg.Gateway.RateBurst)
	client := &gateway.RESTClient{
		PublicBaseURL:  cfg.Gateway.PublicBaseURL,
		PrivateBaseURL: cfg.Gateway.PrivateBaseURL,
		APIKey:         cfg.Gateway.APIKey,
		Secret:         cfg.Gateway.APISecret,
		HTTPClient:     gateway.NewDefaultHTTPClient(cfg.Gateway.Timeout()),
		Limiter:        limiter,
	}

	// 启动时核对配置的标的确实在交易所开放
	if listed, err := client.GetSymbols(ctx); err != nil {
		zl.Warn("symbol listing unavailable, skipping validation", zap.Error(err))
	} else {
		known := make(map[string]struct{}, len(listed))
		for _, s := range listed {
			known[s.Symbol] = struct{}{}
		}
		for _, sym := range cfg.Symbols {
			if _, ok := known[sym]; !ok {
				zl.Warn("configured symbol not listed on venue", zap.String("symbol", sym))
			}
		}
	}

	cache := newOrderCache()
	registry := inventory.NewRegistry(cfg.Currencies...)
	normalizer := inventory.NewNormalizer(registry, cfg.Anchor, zl)
	sink := &logSink{log: zl, cache: cache}

	resolver := order.NewResolver(cache, order.ResolverConfig{
		Attempts: cfg.Resolver.Attempts,
		Delay:    cfg.Resolver.Delay(),
	}, zl)
	reconciler := order.NewReconciler(resolver, client, sink, normalizer, zl)
	dispatcher := gateway.NewDispatcher(reconciler, zl)

	submitter := order.NewSubmitter(client, sink, zl)
	trade := NewTradeService(submitter, cache)
	_ = trade // 下单入口暴露给上层引擎，守护进程本身不主动交易

	builder := order.NewReportBuilder(client, symbolList(cfg.Symbols), normalizer, zl)
	go runReconcileLoop(ctx, builder, time.Minute, zl)

	barPoller := market.NewBarPoller(client, &barSink{log: zl}, zl)
	defer barPoller.Close()
	for _, sub := range cfg.Bars {
		spec, err := market.ParseBarSpec(sub.Spec)
		if err != nil {
			zl.Warn("skip invalid bar subscription", zap.String("spec", sub.Spec), zap.Error(err))
			continue
		}
		if err := barPoller.Subscribe(ctx, sub.Symbol, spec); err != nil {
			zl.Warn("bar subscription failed", zap.String("symbol", sub.Symbol), zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	if cfg.Gateway.PrivateWSURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runStream(ctx, cfg.Gateway.PrivateWSURL, dispatcher, zl)
		}()
	}

	// 热载目前只作用于限流参数，鉴权与接线参数需要重启。
	go func() {
		w := config.Watcher{Path: *cfgPath}
		_ = w.Start(ctx, func(next config.AppConfig) {
			limiter.SetRate(next.Gateway.RateLimitPerSec, next.Gateway.RateBurst)
			zl.Info("rate limit reloaded",
				zap.Float64("ratePerSec", next.Gateway.RateLimitPerSec),
				zap.Int("burst", next.Gateway.RateBurst))
		})
	}()

	notifySystemd(ctx, zl)

	zl.Info("gmocoin adapter started", zap.String("env", cfg.Env), zap.Strings("symbols", cfg.Symbols))
	<-ctx.Done()
	zl.Info("shutting down")
	wg.Wait()
	dispatcher.Wait()
}

// runStream 维持私有 WS 连接，断开后固定间隔重连直至 ctx 取消。
func runStream(ctx context.Context, wsURL string, dispatcher *gateway.Dispatcher, zl *zap.Logger) {
	const retryDelay = 5 * time.Second
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			zl.Warn("private ws dial failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		channels := []string{
			"orderEvents", "executionEvents", "assetEvents",
			"positionEvents", "positionSummaryEvents",
		}
		for _, channel := range channels {
			msg := map[string]string{"command": "subscribe", "channel": channel}
			if err := conn.WriteJSON(msg); err != nil {
				zl.Warn("ws subscribe failed", zap.String("channel", channel), zap.Error(err))
			}
		}
		stream := &gateway.Stream{Conn: conn, Dispatcher: dispatcher, Log: zl}
		if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
			zl.Warn("private ws closed, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

// notifySystemd 发 READY 并在启用 watchdog 时按半周期喂狗。
func notifySystemd(ctx context.Context, zl *zap.Logger) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		zl.Warn("systemd notify failed", zap.Error(err))
	} else if ok {
		zl.Info("systemd READY sent")
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}
