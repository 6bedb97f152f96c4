package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pipelined/esdr"
	"github.com/pipelined/esdr/block"
	"github.com/pipelined/esdr/config"
	"github.com/pipelined/esdr/control"
	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/graph"
	"github.com/pipelined/esdr/log"
	"github.com/pipelined/esdr/metric"
	"github.com/pipelined/esdr/portaudio"
	"github.com/pipelined/esdr/session"
)

const shutdownTimeout = 5 * time.Second

func newRunCommand() *cobra.Command {
	var idle bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the FM receiver with HTTP control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, !idle)
		},
	}
	cmd.Flags().BoolVar(&idle, "idle", false, "don't start the receiver until requested")
	return cmd
}

func run(ctx context.Context, cfg config.Config, start bool) error {
	logger, err := log.WithLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	env := cfg.Env()
	if cfg.Audio.Output == config.AudioPortAudio {
		env.Audio = portaudio.Open(0)
	}
	g, err := receiver(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	compiler := esdr.NewCompiler(env,
		esdr.WithLogger(logger),
		esdr.WithMetrics(metric.New(registry)),
	)
	s := session.New(g, compiler, session.WithLogger(logger))
	if start {
		if err := s.Run(ctx); err != nil {
			return err
		}
	}

	ctrl := control.New(s, control.WithLogger(logger))
	ctrl.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: ctrl,
	}
	errc := make(chan error, 1)
	go func() {
		logger.WithField("listen", cfg.HTTP.Listen).Info("control server started")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err = <-errc:
	case <-ctx.Done():
	}
	shutdownCtx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelFn()
	errs := []error{s.Close(shutdownCtx)}
	if err == nil {
		errs = append(errs, srv.Shutdown(shutdownCtx))
	} else if !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, err)
	}
	err = errors.Join(errs...)
	if err != nil {
		logger.WithError(err).Error("receiver stopped with error")
		return err
	}
	logger.Info("receiver stopped")
	return nil
}

// receiver builds the FM receiver graph. Recorded I/Q samples replace
// the tuner if playback is configured.
func receiver(cfg config.Config) (*graph.Graph, error) {
	g := graph.New()
	var source graph.NodeID
	if cfg.Playback.Path != "" {
		source = g.AddNode(block.WavSource)
	} else {
		source = g.AddNode(block.SoapySDR)
		if err := g.SetScalar(source, "freq", cfg.Station.Freq); err != nil {
			return nil, err
		}
		if err := g.SetScalar(source, "gain", cfg.Station.Gain); err != nil {
			return nil, err
		}
	}
	sink := block.AudioOutput
	if cfg.Audio.Output == config.AudioWav {
		sink = block.WavRecorder
	}
	nodes := []graph.NodeID{
		source,
		g.AddNode(block.Shift),
		g.AddNode(block.Resampler),
		g.AddNode(block.FMDemodulator),
		g.AddNode(block.FilterResampler),
		g.AddNode(block.Volume),
		g.AddNode(sink),
	}
	for i := 1; i < len(nodes); i++ {
		out, err := g.NodeOutput(nodes[i-1], engine.OutputPort)
		if err != nil {
			return nil, err
		}
		in, err := g.NodeInput(nodes[i], engine.InputPort)
		if err != nil {
			return nil, err
		}
		if err := g.Connect(out, in); err != nil {
			return nil, err
		}
	}
	return g, nil
}
