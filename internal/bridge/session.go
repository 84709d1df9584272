package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
	"github.com/USA-RedDragon/walletkit-bridge/internal/events"
	"github.com/USA-RedDragon/walletkit-bridge/internal/metrics"
)

type options struct {
	parser   EventParser
	router   *events.Router
	sessions SessionInjectors
	metrics  *metrics.Metrics
	onReady  func(ReadyInfo)
	storage  StorageMode
}

type Option func(*options)

func WithParser(parser EventParser) Option {
	return func(o *options) { o.parser = parser }
}

func WithRouter(router *events.Router) Option {
	return func(o *options) { o.router = router }
}

func WithSessions(sessions SessionInjectors) Option {
	return func(o *options) { o.sessions = sessions }
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithStorageMode hands the engine's storage to the init manager.
func WithStorageMode(storage StorageMode) Option {
	return func(o *options) { o.storage = storage }
}

func WithOnReady(fn func(ReadyInfo)) Option {
	return func(o *options) { o.onReady = fn }
}

// Session owns everything that coordinates one JavaScript engine.
type Session struct {
	transport  engine.Transport
	rpc        *RPCClient
	init       *InitManager
	dispatcher *Dispatcher
	mainLoop   *MainLoop
	router     *events.Router

	closeOnce sync.Once
}

func NewSession(transport engine.Transport, opts ...Option) *Session {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parser == nil {
		o.parser = events.NewParser()
	}
	if o.router == nil {
		o.router = events.NewRouter()
	}

	rpc := NewRPCClient(transport, o.metrics)
	initManager := NewInitManager(rpc)
	initManager.SetStorageMode(o.storage)
	mainLoop := NewMainLoop()
	dispatcher := NewDispatcher(rpc, initManager, transport, mainLoop, DispatcherOptions{
		Parser:   o.parser,
		Router:   o.router,
		Sessions: o.sessions,
		Metrics:  o.metrics,
		OnReady:  o.onReady,
	})
	transport.SetMessageHandler(dispatcher.DispatchMessage)

	return &Session{
		transport:  transport,
		rpc:        rpc,
		init:       initManager,
		dispatcher: dispatcher,
		mainLoop:   mainLoop,
		router:     o.router,
	}
}

// Configure stores the config used by the first EnsureInitialized.
func (s *Session) Configure(cfg Config) {
	s.init.Configure(cfg)
}

func (s *Session) EnsureInitialized(ctx context.Context) error {
	return s.init.EnsureInitialized(ctx, nil)
}

func (s *Session) Initialize(ctx context.Context, cfg Config) error {
	return s.init.EnsureInitialized(ctx, &cfg)
}

func (s *Session) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return s.rpc.Call(ctx, method, params)
}

func (s *Session) EnsureEventListenersSetUp(ctx context.Context) error {
	return s.dispatcher.EnsureEventListenersSetUp(ctx)
}

func (s *Session) RemoveEventListenersIfNeeded(ctx context.Context) {
	s.dispatcher.RemoveEventListenersIfNeeded(ctx)
}

func (s *Session) AreEventListenersSetUp() bool {
	return s.dispatcher.AreEventListenersSetUp()
}

// AddEventHandler registers h and makes sure JavaScript emits events.
func (s *Session) AddEventHandler(ctx context.Context, h events.Handler) (int, error) {
	id := s.router.AddHandler(h)
	if err := s.dispatcher.EnsureEventListenersSetUp(ctx); err != nil {
		return id, err
	}
	return id, nil
}

func (s *Session) RemoveEventHandler(id int) {
	s.router.RemoveHandler(id)
}

func (s *Session) DispatchMessage(payload []byte) {
	s.dispatcher.DispatchMessage(payload)
}

func (s *Session) State() InitState {
	return s.init.State()
}

func (s *Session) IsReady() bool {
	return s.rpc.IsReady()
}

func (s *Session) PendingCalls() int {
	return s.rpc.PendingCount()
}

func (s *Session) Transport() engine.Transport {
	return s.transport
}

// Close fails every pending call with ErrBridgeClosed and tears the engine
// down. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		slog.Info("Closing bridge session")
		s.rpc.FailAll(ErrBridgeClosed)
		s.dispatcher.Close()
		s.mainLoop.Close()
		err = s.transport.Close()
		s.init.Reset()
	})
	return err
}
