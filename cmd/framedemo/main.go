// Command framedemo runs framepool headless on the noop hal backend.
//
// It creates a grid of draw nodes, animates a subset of them on the update
// loop and draws the latest published frame on the draw loop. Frame
// statistics are logged periodically and can be scraped as Prometheus
// metrics:
//
//	framedemo -nodes 500 -animated 50 -duration 5s -metrics :9090
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/framepool"
	"github.com/gogpu/framepool/device/haldevice"
	"github.com/gogpu/framepool/drawnode"
	"github.com/gogpu/framepool/loop"
	"github.com/gogpu/framepool/renderer"
	"github.com/gogpu/framepool/stats"
)

type config struct {
	width, height uint32
	nodes         int
	animated      int
	duration      time.Duration
	updateRate    float64
	drawRate      float64
	statsEvery    uint64
	metricsAddr   string
	verbose       bool
}

func main() {
	var (
		cfg           config
		width, height uint
	)
	flag.UintVar(&width, "width", 800, "render target width")
	flag.UintVar(&height, "height", 600, "render target height")
	flag.IntVar(&cfg.nodes, "nodes", 200, "number of draw nodes")
	flag.IntVar(&cfg.animated, "animated", 20, "number of nodes moved every update")
	flag.DurationVar(&cfg.duration, "duration", 3*time.Second, "how long to run, 0 until interrupted")
	flag.Float64Var(&cfg.updateRate, "update-rate", loop.DefaultUpdateRate, "update loop frequency in Hz")
	flag.Float64Var(&cfg.drawRate, "draw-rate", 120, "draw loop cap in Hz, 0 for uncapped")
	flag.Uint64Var(&cfg.statsEvery, "stats-every", 60, "log frame stats every n frames")
	flag.StringVar(&cfg.metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	flag.BoolVar(&cfg.verbose, "v", false, "debug logging")
	flag.Parse()
	cfg.width, cfg.height = uint32(width), uint32(height)

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	framepool.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("framedemo failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	raw, queue, cleanup, err := openNoop()
	if err != nil {
		return err
	}
	defer cleanup()

	dev, err := haldevice.New(raw, queue,
		haldevice.WithLabel("framedemo"),
		haldevice.WithClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.12, A: 1}))
	if err != nil {
		return err
	}
	defer dev.Close()
	if err := attachTarget(raw, dev, cfg.width, cfg.height); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := stats.NewPrometheus(reg, "framedemo")
	if err != nil {
		return err
	}
	if cfg.metricsAddr != "" {
		srv := serveMetrics(cfg.metricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	r, err := renderer.New(dev, renderer.WithStats(metrics))
	if err != nil {
		return err
	}
	defer r.Close()

	s := newScene(cfg)
	draw := func(context.Context, time.Duration) error {
		if err := r.BeginFrame(); err != nil {
			return err
		}
		if err := r.DrawFrame(s.exchange.Latest()); err != nil {
			return err
		}
		if err := r.FinishFrame(); err != nil {
			return err
		}
		if st := r.Stats(); cfg.statsEvery > 0 && uint64(st.ResetID)%cfg.statsEvery == 0 {
			logger.Info(st.String())
		}
		return nil
	}

	logger.Info("framedemo running",
		"nodes", cfg.nodes, "animated", cfg.animated, "duration", cfg.duration)
	if err := loop.Run(ctx, s.update, draw,
		loop.WithUpdateRate(cfg.updateRate), loop.WithDrawRate(cfg.drawRate)); err != nil {
		return err
	}
	logger.Info("framedemo done",
		"frames", r.Stats().ResetID, "published", s.exchange.Published())
	return nil
}

// openNoop opens the noop hal backend.
func openNoop() (hal.Device, hal.Queue, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, errors.New("no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("open device: %w", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup, nil
}

// attachTarget creates the offscreen render target.
func attachTarget(raw hal.Device, dev *haldevice.Device, width, height uint32) error {
	const format = gputypes.TextureFormatBGRA8Unorm
	tex, err := raw.CreateTexture(&hal.TextureDescriptor{
		Label:         "framedemo_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create render target: %w", err)
	}
	view, err := raw.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "framedemo_target_view"})
	if err != nil {
		raw.DestroyTexture(tex)
		return fmt.Errorf("create render target view: %w", err)
	}
	return dev.SetRenderTarget(view, format, width, height)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server exited", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

// scene owns the draw nodes. Only the update goroutine touches it; the draw
// goroutine sees published frames through the exchange.
type scene struct {
	nodes    []*drawnode.Node
	animated int
	origins  [][2]float32
	exchange *drawnode.Exchange
	producer *drawnode.Producer
	elapsed  time.Duration
}

func newScene(cfg config) *scene {
	s := &scene{
		nodes:    make([]*drawnode.Node, cfg.nodes),
		animated: min(cfg.animated, cfg.nodes),
		origins:  make([][2]float32, cfg.nodes),
		exchange: &drawnode.Exchange{},
	}
	s.producer = drawnode.NewProducer(s.exchange)

	const size = 16
	cols := max(int(cfg.width)/(size*2), 1)
	for i := range s.nodes {
		n := drawnode.NewNode()
		x, y := float32(i%cols*size*2), float32(i/cols*size*2)
		s.origins[i] = [2]float32{x, y}
		n.SetSize(size, size)
		n.SetTransform(drawnode.Translate(x, y))
		n.SetColor(hueColor(float64(i) / float64(cfg.nodes)))
		if i%4 == 0 {
			n.SetBlend(gputypes.BlendStatePremultiplied())
		}
		s.nodes[i] = n
	}
	return s
}

func (s *scene) update(_ context.Context, dt time.Duration) error {
	s.elapsed += dt
	t := s.elapsed.Seconds()
	for i := range s.animated {
		phase := t*2 + float64(i)*0.3
		o := s.origins[i]
		s.nodes[i].SetTransform(drawnode.Translate(
			o[0]+float32(8*math.Cos(phase)),
			o[1]+float32(8*math.Sin(phase)),
		))
	}
	_, err := s.producer.Produce(s.nodes)
	return err
}

// hueColor returns a saturated color for h in [0, 1).
func hueColor(h float64) [4]float32 {
	r := 0.5 + 0.5*math.Cos(2*math.Pi*h)
	g := 0.5 + 0.5*math.Cos(2*math.Pi*(h-1.0/3))
	b := 0.5 + 0.5*math.Cos(2*math.Pi*(h-2.0/3))
	return [4]float32{float32(r), float32(g), float32(b), 1}
}
