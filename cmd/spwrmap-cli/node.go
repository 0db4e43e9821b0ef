package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spacewire-tools/spwrmap/pkg/client"
	"github.com/spacewire-tools/spwrmap/pkg/metrics"
	"github.com/spacewire-tools/spwrmap/pkg/target"
	"github.com/spacewire-tools/spwrmap/pkg/telemetry"
)

// session owns one connected, running Node plus whatever observers were
// wired in from global flags, and tears all of it down together.
type session struct {
	node       *client.Node
	runErrCh   chan error
	redisSink  *telemetry.RedisSink
	metricsSrv *http.Server
}

func newSession(opts *globalOptions) (*session, error) {
	var observers []client.Observer

	if opts.redisAddr != "" {
		sink, err := telemetry.NewRedisSink(opts.redisAddr, "", 0, "spwrmap:events", log.Default())
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		observers = append(observers, sink)
	}

	s := &session{}
	if opts.redisAddr != "" {
		s.redisSink = observers[0].(*telemetry.RedisSink)
	}

	if opts.metricsListenAddr != "" {
		reg := prometheus.NewRegistry()
		rec := metrics.NewRecorder(reg, "spwrmap_cli")
		observers = append(observers, rec)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opts.metricsListenAddr, Handler: mux}
		s.metricsSrv = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	cfg := client.Config{
		Address:                 opts.address,
		ConnectTimeout:          opts.connectTimeout,
		SendTimeout:             opts.sendTimeout,
		RecvTimeout:             opts.recvTimeout,
		InitiatorLogicalAddress: opts.initiatorLogicalAddress,
		Observers:               observers,
	}
	node := client.New(cfg, log.Default())
	if err := node.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	s.node = node
	s.runErrCh = make(chan error, 1)
	go func() { s.runErrCh <- node.Run() }()
	return s, nil
}

func (s *session) close() {
	s.node.Stop()
	<-s.runErrCh
	if s.redisSink != nil {
		s.redisSink.Close()
	}
	if s.metricsSrv != nil {
		s.metricsSrv.Close()
	}
}

func (opts *globalOptions) targetDescriptor() target.Descriptor {
	d := target.NewDynamic(opts.targetLogicalAddress, opts.initiatorLogicalAddress, opts.targetPath, opts.replyPath)
	return d
}

func (opts *globalOptions) operationContext() (context.Context, context.CancelFunc) {
	if opts.opTimeout <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), opts.opTimeout)
}
