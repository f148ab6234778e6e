package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"time"

	"github.com/maruel/interrupt"

	"github.com/soocke/optiflow-go/capture"
	"github.com/soocke/optiflow-go/config"
	"github.com/soocke/optiflow-go/debug"
	"github.com/soocke/optiflow-go/domain/flow"
	"github.com/soocke/optiflow-go/video"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		file       = flag.String("file", "", "read frames from a video file")
		camera     = flag.Int("camera", 0, "camera device number")
		screen     = flag.Bool("screen", false, "capture the desktop instead of opening a camera")
		scaledown  = flag.Int("scaledown", 0, "integer scale-down factor for the flow image")
		movestep   = flag.Int("movestep", 0, "flow sampling step in pixels")
		angle      = flag.Float64("angle", 0, "camera perspective angle in radians (0 = report pixels/second)")
		distance   = flag.Float64("distance", 0, "subject distance in meters")
		display    = flag.Bool("display", false, "show the flow overlay in a window (ESC stops)")
		lk         = flag.Bool("lk", false, "use the built-in Lucas-Kanade estimator instead of Farneback")
		configPath = flag.String("config", "", "path to a JSON config file")
		debugFlag  = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config %s: %v\n", *configPath, err)
			return 1
		}
		cfg = loaded
	}
	if *scaledown > 0 {
		cfg.ScaleDown = *scaledown
	}
	if *movestep > 0 {
		cfg.MoveStep = *movestep
	}
	if *angle > 0 {
		cfg.PerspectiveAngle = *angle
	}
	if *distance > 0 {
		cfg.Distance = *distance
	}
	if *display {
		cfg.ShowWindow = true
	}
	if *debugFlag {
		cfg.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(level)
	if cfg.Debug {
		debug.StartMemLogger(0, logger)
	}

	var (
		src video.Source
		err error
	)
	switch {
	case *file != "":
		src, err = video.OpenFile(*file)
	case *screen:
		src, err = capture.NewScreenSource(cfg.Width, cfg.Height, logger)
	default:
		src, err = video.OpenCamera(*camera)
	}
	if err != nil {
		logger.Error("open source", "error", err)
		return 1
	}
	defer src.Close()

	var est flow.Estimator = video.NewFarneback()
	if *lk {
		est = flow.NewLucasKanade(0)
	}

	var disp flow.Display
	if cfg.ShowWindow {
		win := video.NewWindow(cfg.WindowName)
		defer win.Close()
		disp = win
	}

	w, h := src.Size()
	agg, err := flow.NewAggregator(flow.Options{
		Width:            w,
		Height:           h,
		ScaleDown:        cfg.ScaleDown,
		MoveStep:         cfg.MoveStep,
		PerspectiveAngle: cfg.PerspectiveAngle,
		FlowColor:        color.RGBA{R: cfg.FlowColorR, G: cfg.FlowColorG, B: cfg.FlowColorB, A: 0xff},
	}, est, disp, logger)
	if err != nil {
		logger.Error("configure aggregator", "error", err)
		return 1
	}

	interrupt.HandleCtrlC()
	start := time.Now()
	count := 0
	for !interrupt.IsSet() {
		frame, ok := src.Read()
		if !ok {
			break
		}
		count++
		vel, stopped, perr := agg.ProcessFrame(frame, cfg.Distance, 0)
		if pooled, isPooled := frame.(*image.RGBA); isPooled && *screen {
			capture.RecycleFrame(pooled)
		}
		if perr != nil {
			logger.Error("process frame", "error", perr)
			return 1
		}
		if stopped {
			break
		}
		logger.Debug("velocity", "vx", vel.X, "vy", vel.Y)
	}

	elapsed := time.Since(start).Seconds()
	sw, sh := agg.ScaledSize()
	fps := 0.0
	if elapsed > 0 {
		fps = float64(count) / elapsed
	}
	fmt.Printf("%dx%d image: %d frames in %3.3f sec = %3.3f frames / sec\n", sw, sh, count, elapsed, fps)

	st := agg.Stats()
	logger.Info("session", "frames", st.Frames, "avg_process", st.AvgProcess)
	if scr, ok := src.(*capture.ScreenSource); ok {
		cs := scr.Stats()
		logger.Info("capture.stats", "grabs", cs.Grabs, "failures", cs.Failures, "avg_grab", cs.AvgGrab)
	}
	return 0
}
