// Command workerbus is a small demonstration host program: it decides
// whether this process is the master or a worker (the role probe, C1)
// and drives the cluster package's façade accordingly. Structured the
// way the teacher's cmd/porkg/porkg.go drives zygote.Spawn -- a short
// main that delegates everything real to a package.
package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/porkg/workerbus/cluster"
	"github.com/porkg/workerbus/internal/config"
	"github.com/porkg/workerbus/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logging.Init(level)

	if cluster.IsWorker() {
		runWorker()
		return
	}
	runMaster(cfg)
}

func runMaster(cfg config.SupervisorConfig) {
	cluster.On(cluster.EventOnline, func(h *cluster.Handle) {
		log.Info().Str("id", h.ID()).Msg("worker online")
	})
	cluster.On(cluster.EventExit, func(h *cluster.Handle) {
		log.Info().Str("id", h.ID()).Msg("worker exited")
	})

	a, err := cluster.New("a", false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to spawn worker a")
	}
	a.On("hello", func(args ...any) {
		log.Info().Interface("args", args).Msg("master received hello from a")
	})
	a.On(cluster.EventError, func(args ...any) {
		log.Warn().Interface("args", args).Str("id", a.ID()).Msg("worker channel error")
	})

	b, err := cluster.New("b", cfg.DefaultKeepAlive)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to spawn worker b")
	}
	_ = b

	time.Sleep(5 * time.Second)

	cluster.GetWorkers(func(handles []*cluster.Handle, err error) {
		if err != nil {
			log.Error().Err(err).Msg("get-workers failed")
			return
		}
		for _, h := range handles {
			log.Info().Str("id", h.ID()).Bool("keepAlive", h.KeepAlive()).Msg("online worker")
		}
	})

	select {}
}

func runWorker() {
	cluster.GetWorker(func(h *cluster.Handle, err error) {
		if err != nil {
			log.Fatal().Err(err).Msg("failed to resolve self")
		}

		h.On("ping", func(args ...any) {
			log.Info().Interface("args", args).Msg("worker received ping")
		})
		h.On(cluster.EventError, func(args ...any) {
			log.Warn().Interface("args", args).Msg("channel error")
		})

		if h.ID() == "a" {
			h.Emit("hello", 1, "x")
		}
	})

	select {}
}
