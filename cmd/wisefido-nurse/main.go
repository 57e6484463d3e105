package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-nurse/internal/broadcast"
	"wisefido-nurse/internal/common/logger"
	mqttcommon "wisefido-nurse/internal/common/mqtt"
	rediscommon "wisefido-nurse/internal/common/redis"
	"wisefido-nurse/internal/config"
	"wisefido-nurse/internal/fixtures"
	httpapi "wisefido-nurse/internal/http"
	"wisefido-nurse/internal/ingest"
	"wisefido-nurse/internal/metrics"
	"wisefido-nurse/internal/persistence"
	"wisefido-nurse/internal/scheduler"
	"wisefido-nurse/internal/service"
	"wisefido-nurse/internal/slider"
	"wisefido-nurse/internal/store"
	"wisefido-nurse/internal/workflow"

	"go.uber.org/zap"
)

const writeQueueSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-nurse")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(nil)
	sched := scheduler.NewTimerScheduler()
	defer sched.Close()

	seed := fixtures.Seed{}
	if cfg.SeedFixtures {
		seed = fixtures.Default(time.Now())
	}
	st := store.New(seed, store.Options{
		Scheduler: sched,
		Logger:    log,
		AckDelay:  cfg.Emergency.AckDelay,
	})
	defer st.Close()

	wf := workflow.New(st, sched, workflow.Config{
		Mode:              workflow.VerifyMode(cfg.Workflow.VerifyMode),
		ScanDelay:         cfg.Workflow.ScanDelay,
		ScanSuccessRate:   cfg.Workflow.ScanSuccessRate,
		StrictMedications: cfg.Workflow.StrictMedications,
	}, log)

	// 远端持久化（可选）
	remote, closeRemote := persistence.Open(ctx, cfg.Remote, log)
	defer closeRemote()
	writer := persistence.NewAsyncWriter(remote, writeQueueSize, 5*time.Second, m.ObserveRemoteWrite, log)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	go writer.Run(writerCtx)

	// 广播通道
	var publishers []broadcast.Publisher

	var redisClient *rediscommon.Client
	if cfg.Redis.Enabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis.RedisConfig)
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unreachable, emergency stream disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			publishers = append(publishers, broadcast.NewRedisStreamPublisher(redisClient, cfg.Redis.Stream, cfg.Redis.MaxLen))
		}
	}

	var (
		mqttClient *mqttcommon.Client
		haptics    slider.Haptics = slider.NopHaptics{}
	)
	if cfg.MQTT.Enabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			log.Warn("MQTT unavailable, broadcast and alert ingest disabled", zap.Error(err))
			mqttClient = nil
		} else {
			publishers = append(publishers, broadcast.NewMQTTPublisher(mqttClient, cfg.MQTT.EmergencyTopic, cfg.MQTT.QoS))
			if cfg.MQTT.HapticsTopic != "" {
				haptics = slider.NewDeviceHaptics(mqttClient, cfg.MQTT.HapticsTopic, log)
			}
		}
	}

	fanout := broadcast.NewFanout(publishers, cfg.Emergency.BroadcastTimeout, m.ObserveBroadcast, log)
	log.Info("Emergency broadcast channels", zap.Strings("channels", fanout.Channels()))

	svc := service.NewNurseService(service.Options{
		Context:       ctx,
		Store:         st,
		Workflow:      wf,
		Scheduler:     sched,
		Remote:        remote,
		Writer:        writer,
		Broadcaster:   fanout,
		Haptics:       haptics,
		Metrics:       m,
		Logger:        log,
		Staff:         cfg.Staff,
		MarkReadDelay: cfg.Alerts.MarkReadDelay,
	})

	var consumer *ingest.AlertConsumer
	if mqttClient != nil && cfg.MQTT.AlertTopic != "" {
		consumer = ingest.NewAlertConsumer(mqttClient, cfg.MQTT.AlertTopic, cfg.MQTT.QoS, st, svc.HandleIngestedAlert, log)
		if err := consumer.Start(); err != nil {
			log.Warn("Alert ingest disabled", zap.Error(err))
			consumer = nil
		}
	}

	if err := svc.SyncFromRemote(ctx); err != nil {
		log.Warn("Initial remote sync failed, keeping local tasks", zap.Error(err))
	}
	go func() {
		if err := svc.WatchRemote(ctx); err != nil {
			log.Warn("Remote watch stopped", zap.Error(err))
		}
	}()

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes(m.Handler())
	router.RegisterNurseRoutes(httpapi.NewNurseHandler(svc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if consumer != nil {
		_ = consumer.Stop()
	}
	cancel()
	svc.Close()

	// 排空待写入的远端操作
	stopWriter()
	select {
	case <-writer.Done():
	case <-shutdownCtx.Done():
		log.Warn("Remote writer did not drain before shutdown")
	}

	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info("wisefido-nurse stopped")
}
