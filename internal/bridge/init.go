package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-nulltype"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxProtocolVersion = 2

// Feature is a TON Connect wallet capability advertised in DeviceInfo.
type Feature struct {
	Name        string   `json:"name"`
	MaxMessages uint64   `json:"maxMessages,omitempty"`
	Types       []string `json:"types,omitempty"`
}

type DeviceInfo struct {
	Platform           string `json:"platform"`
	AppName            string `json:"appName"`
	AppVersion         string `json:"appVersion"`
	MaxProtocolVersion uint64 `json:"maxProtocolVersion"`
	Features           []any  `json:"features"`
}

// DefaultFeatures lists the legacy bare feature name followed by the
// structured entries.
func DefaultFeatures() []any {
	return []any{
		"SendTransaction",
		Feature{Name: "SendTransaction", MaxMessages: 4},
		Feature{Name: "SignData", Types: []string{"text", "binary", "cell"}},
	}
}

// Config is what the application supplies to initialize WalletKit.
type Config struct {
	Network            string
	APIURL             string
	TonAPIKey          string
	WalletManifest     json.RawMessage
	DeviceInfo         DeviceInfo
	PersistentStorage  bool
	DisableNetworkSend bool
}

type initPayload struct {
	Network            string          `json:"network"`
	APIURL             string          `json:"apiUrl,omitempty"`
	TonAPIKey          string          `json:"tonApiKey,omitempty"`
	WalletManifest     json.RawMessage `json:"walletManifest,omitempty"`
	DeviceInfo         DeviceInfo      `json:"deviceInfo"`
	DisableNetworkSend bool            `json:"disableNetworkSend,omitempty"`
	PersistentStorage  bool            `json:"persistentStorage"`
}

func (c Config) payload() initPayload {
	info := c.DeviceInfo
	if info.Platform == "" {
		info.Platform = "linux"
	}
	if info.MaxProtocolVersion == 0 {
		info.MaxProtocolVersion = DefaultMaxProtocolVersion
	}
	if info.Features == nil {
		info.Features = DefaultFeatures()
	}
	return initPayload{
		Network:            c.Network,
		APIURL:             c.APIURL,
		TonAPIKey:          c.TonAPIKey,
		WalletManifest:     c.WalletManifest,
		DeviceInfo:         info,
		DisableNetworkSend: c.DisableNetworkSend,
		PersistentStorage:  c.PersistentStorage,
	}
}

type InitState struct {
	Initialized              bool                `json:"initialized"`
	PersistentStorageEnabled bool                `json:"persistent_storage_enabled"`
	Network                  string              `json:"network"`
	APIBaseURL               string              `json:"api_base_url"`
	TonAPIKey                nulltype.NullString `json:"ton_api_key"`
}

// StorageMode is switched to the requested storage before init is sent, so
// WalletKit persists its state where the config asked for.
type StorageMode interface {
	SetPersistentStorage(enabled bool)
}

type caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// InitManager runs the init call exactly once, however many callers race to
// use WalletKit first.
type InitManager struct {
	rpc     caller
	storage StorageMode

	initialized atomic.Bool
	lock        *semaphore.Weighted

	mu      sync.RWMutex
	pending *Config
	state   InitState
}

func NewInitManager(rpc caller) *InitManager {
	return &InitManager{
		rpc:  rpc,
		lock: semaphore.NewWeighted(1),
	}
}

func (m *InitManager) SetStorageMode(storage StorageMode) {
	m.storage = storage
}

// Configure stores cfg for the next EnsureInitialized call that is not given
// one explicitly.
func (m *InitManager) Configure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &cfg
}

func (m *InitManager) EnsureInitialized(ctx context.Context, cfg *Config) error {
	if m.initialized.Load() {
		return nil
	}
	if err := m.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.lock.Release(1)
	if m.initialized.Load() {
		return nil
	}

	m.mu.RLock()
	effective := cfg
	if effective == nil {
		effective = m.pending
	}
	m.mu.RUnlock()
	if effective == nil {
		return ErrNotConfigured
	}

	slog.Info("Initializing WalletKit", "network", effective.Network, "persistent_storage", effective.PersistentStorage)
	if m.storage != nil {
		m.storage.SetPersistentStorage(effective.PersistentStorage)
	}
	if _, err := m.rpc.Call(ctx, MethodInit, effective.payload()); err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	m.mu.Lock()
	m.pending = effective
	m.state.Initialized = true
	m.state.PersistentStorageEnabled = effective.PersistentStorage
	if m.state.Network == "" {
		m.state.Network = effective.Network
	}
	if m.state.APIBaseURL == "" {
		m.state.APIBaseURL = effective.APIURL
	}
	if effective.TonAPIKey != "" {
		m.state.TonAPIKey = nulltype.NullStringOf(effective.TonAPIKey)
	}
	m.mu.Unlock()
	m.initialized.Store(true)
	return nil
}

func (m *InitManager) IsInitialized() bool {
	return m.initialized.Load()
}

func (m *InitManager) State() InitState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *InitManager) UpdateNetwork(network string) {
	if network == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Network != network {
		slog.Info("Network updated", "network", network)
	}
	m.state.Network = network
}

func (m *InitManager) UpdateAPIBaseURL(url string) {
	if url == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.APIBaseURL = url
}

// Reset forgets everything, including the pending config.
func (m *InitManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized.Store(false)
	m.pending = nil
	m.state = InitState{}
}
