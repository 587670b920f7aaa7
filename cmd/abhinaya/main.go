package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/browser"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/cursor"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/log"
	"github.com/ayusman/abhinaya/internal/replay"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: user config dir)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	replayName := flag.String("replay", "", "replay a scripted landmark session instead of the camera")
	flag.Parse()

	if err := run(*configPath, *addr, *noTray, *replayName); err != nil {
		fmt.Fprintln(os.Stderr, "abhinaya:", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, noTray bool, replayName string) error {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level)
	log.Info("config loaded", "path", configPath)

	if addr != "" {
		cfg.Server.Addr = addr
	}

	dbPath, err := store.DefaultPath()
	if err != nil {
		return fmt.Errorf("store path: %w", err)
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tracking := cfg.Tracking
	if p, err := st.ActiveProfile(); err == nil {
		tracking = p.Tracking
		log.Info("restored profile", "name", p.Name)
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("read active profile", "error", err)
	}

	session := app.NewSession(tracking, true)
	preview := capture.NewPreview()
	hub := server.NewHub()

	provider, err := newProvider(cfg, preview, replayName)
	if err != nil {
		return err
	}

	publishers := []app.Publisher{hub}
	var tr *tray.Tray
	if !noTray {
		tr = tray.New(session)
		publishers = append(publishers, tr)
	}

	appCfg := app.Config{
		Session:    session,
		Provider:   provider,
		Sink:       cursor.NewRobotSink(),
		Camera:     cfg.Camera,
		Publishers: publishers,
		ScreenSize: cursor.ScreenSize,
	}
	if cfg.Snap.Enabled {
		appCfg.Snapper = cursor.NewSnapper(cfg.Snap)
	}
	application := app.New(appCfg)

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		Store:     st,
		Session:   session,
		Preview:   preview,
		Hub:       hub,
	})
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := config.Watch(ctx, configPath, func(c *config.Config) {
			if err := session.SetTracking(c.Tracking); err != nil {
				log.Warn("apply reloaded tracking", "error", err)
			}
		})
		if err != nil {
			log.Warn("config watch stopped", "error", err)
		}
	}()

	if err := application.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer application.Stop()

	if tr == nil {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		return nil
	}

	settingsURL := "http://localhost" + cfg.Server.Addr
	if !strings.HasPrefix(cfg.Server.Addr, ":") {
		settingsURL = "http://" + cfg.Server.Addr
	}
	tr.OnSettings(func() {
		if err := browser.OpenURL(settingsURL); err != nil {
			log.Warn("open settings", "url", settingsURL, "error", err)
		}
	})
	tr.OnQuit(func() {
		log.Info("quit from tray")
	})
	tr.Run()
	return nil
}

// newProvider builds the camera provider, or a replay of a scripted
// session when name is set.
func newProvider(cfg *config.Config, preview *capture.Preview, name string) (app.LandmarkProvider, error) {
	if name != "" {
		frames, err := replay.LoadSession(name)
		if err != nil {
			return nil, err
		}
		log.Info("replaying session", "name", name, "frames", len(frames))
		return app.NewReplayProvider(frames, true), nil
	}

	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxFaces:        cfg.Detector.MaxFaces,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConf,
		RefineLandmarks: cfg.Detector.RefineLandmarks,
	})
	if err != nil {
		log.Warn("face mesh unavailable, using a fixed frontal face", "error", err)
		mock := detector.NewMockDetector()
		mock.SetFace(detector.FrontalFace())
		det = mock
	} else {
		det = mp
	}

	return app.NewCameraProvider(cfg.Camera, capture.NewCamera(cfg.Camera), det, preview), nil
}

// findWebDir returns dir if set, otherwise the first web directory found
// next to the working directory or under ~/.abhinaya.
func findWebDir(dir string) string {
	if dir != "" {
		return dir
	}

	candidates := []string{"web", "../web", "../../web"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".abhinaya", "web"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
