package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/bridge"
	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
	"github.com/USA-RedDragon/walletkit-bridge/internal/events"
	"github.com/USA-RedDragon/walletkit-bridge/internal/metrics"
	"github.com/USA-RedDragon/walletkit-bridge/internal/server"
	"github.com/USA-RedDragon/walletkit-bridge/internal/server/controllers"
	websocketControllers "github.com/USA-RedDragon/walletkit-bridge/internal/server/websocket"
	"github.com/USA-RedDragon/walletkit-bridge/internal/sessions"
	"github.com/USA-RedDragon/walletkit-bridge/internal/storage"
	"github.com/USA-RedDragon/walletkit-bridge/internal/walletkit"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "walletkit-bridge",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	cmd.AddCommand(newTokenCommand())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	slog.Info("walletkit-bridge", "version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var promMetrics *metrics.Metrics
	if cfg.HTTP.Metrics.Enabled {
		promMetrics = metrics.NewMetrics()
	}

	persistent, err := storage.NewStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	storageManager := walletkit.NewStorageManager(persistent, cfg.WalletKit.PersistentStorage)
	slog.Info("Storage ready", "driver", cfg.Persistence.Storage.Driver, "persistent", storageManager.IsPersistent())

	var transport engine.Transport
	var remote *engine.Remote
	switch cfg.Engine.Kind {
	case config.EngineKindWebView:
		remote = engine.NewRemote(promMetrics)
		transport = remote
	default:
		script, name, err := engine.LoadScript(cfg.Engine.Script)
		if err != nil {
			return err
		}
		goja := engine.NewGoja(script, name, storageManager)
		if err := goja.Start(ctx); err != nil {
			return fmt.Errorf("failed to start JavaScript engine: %w", err)
		}
		transport = goja
	}

	registry := sessions.NewRegistry()
	session := bridge.NewSession(transport,
		bridge.WithSessions(registry),
		bridge.WithMetrics(promMetrics),
		bridge.WithStorageMode(storageManager),
	)
	bridgeConfig, err := walletKitConfig(cfg)
	if err != nil {
		return err
	}
	session.Configure(bridgeConfig)

	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("walletkit-bridge"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		if _, err := controllers.SubscribeCalls(ctx, nc, cfg.NATS.RPCPrefix, session); err != nil {
			return fmt.Errorf("failed to subscribe to NATS calls: %w", err)
		}
		slog.Info("NATS connection established", "url", cfg.NATS.URL)
	}

	eventsWebsocket := websocketControllers.CreateEventsWebsocket()
	go setUpEvents(ctx, session, eventsWebsocket, nc, cfg.NATS.EventsPrefix)

	slog.Info("Starting HTTP server")
	server := server.NewServer(cfg, &server.Services{
		Session:  session,
		Wallet:   walletkit.NewWalletOperations(session),
		Sessions: registry,
		Events:   eventsWebsocket,
		Engine:   remote,
	})
	err = server.Start()
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	stop := func(_ os.Signal) {
		slog.Info("Shutting down")
		cancel()

		errGrp := errgroup.Group{}

		errGrp.Go(func() error {
			return server.Stop()
		})
		if nc != nil {
			errGrp.Go(func() error {
				return nc.Drain()
			})
		}

		err := errGrp.Wait()
		if err != nil {
			slog.Error("Shutdown error", "error", err.Error())
		}

		removeCtx, removeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		session.RemoveEventListenersIfNeeded(removeCtx)
		removeCancel()
		if err := session.Close(); err != nil {
			slog.Error("Failed to close bridge session", "error", err.Error())
		}
		if err := storageManager.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err.Error())
		}
		slog.Info("Shutdown complete")
	}

	if cmd.Annotations["version"] == "testing" {
		doneChannel := make(chan struct{})
		go func() {
			slog.Info("Sleeping for 5 seconds")
			time.Sleep(5 * time.Second)
			slog.Info("Sending SIGTERM")
			stop(syscall.SIGTERM)
			doneChannel <- struct{}{}
		}()
		<-doneChannel
	} else {
		shutdown.AddWithParam(stop)
		shutdown.Listen(syscall.SIGINT, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT)
	}

	return nil
}

// setUpEvents initializes WalletKit and starts forwarding its events. A
// WebView engine blocks here until one attaches.
func setUpEvents(ctx context.Context, session *bridge.Session, eventsWebsocket *websocketControllers.EventsWebsocket, nc *nats.Conn, prefix string) {
	if err := session.EnsureInitialized(ctx); err != nil {
		slog.Error("Failed to initialize WalletKit", "error", err)
		return
	}
	if _, err := session.AddEventHandler(ctx, eventsWebsocket); err != nil {
		slog.Error("Failed to register events websocket", "error", err)
		return
	}
	if nc != nil {
		if _, err := session.AddEventHandler(ctx, events.NewNATSSink(nc, prefix)); err != nil {
			slog.Error("Failed to register NATS event sink", "error", err)
			return
		}
	}
	slog.Info("WalletKit initialized", "network", session.State().Network)
}

type walletManifest struct {
	Name         string `json:"name"`
	AppName      string `json:"appName,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	AboutURL     string `json:"aboutUrl,omitempty"`
	UniversalURL string `json:"universalUrl,omitempty"`
	BridgeURL    string `json:"bridgeUrl,omitempty"`
}

func walletKitConfig(cfg *config.Config) (bridge.Config, error) {
	bridgeConfig := bridge.Config{
		Network:            cfg.WalletKit.Network,
		APIURL:             cfg.WalletKit.APIURL,
		TonAPIKey:          cfg.WalletKit.TonAPIKey,
		PersistentStorage:  cfg.WalletKit.PersistentStorage,
		DisableNetworkSend: cfg.WalletKit.DisableNetworkSend,
		DeviceInfo: bridge.DeviceInfo{
			AppName:            cfg.WalletKit.AppName,
			AppVersion:         cfg.WalletKit.AppVersion,
			MaxProtocolVersion: cfg.WalletKit.MaxProtocolVersion,
		},
	}
	manifest := cfg.WalletKit.Manifest
	if manifest.Name == "" {
		return bridgeConfig, nil
	}
	data, err := json.Marshal(walletManifest{
		Name:         manifest.Name,
		AppName:      manifest.AppName,
		ImageURL:     manifest.ImageURL,
		AboutURL:     manifest.AboutURL,
		UniversalURL: manifest.UniversalURL,
		BridgeURL:    manifest.BridgeURL,
	})
	if err != nil {
		return bridgeConfig, fmt.Errorf("failed to marshal wallet manifest: %w", err)
	}
	bridgeConfig.WalletManifest = data
	return bridgeConfig, nil
}
