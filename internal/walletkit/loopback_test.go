package walletkit_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/USA-RedDragon/walletkit-bridge/internal/bridge"
	"github.com/USA-RedDragon/walletkit-bridge/internal/engine"
	"github.com/USA-RedDragon/walletkit-bridge/internal/events"
	"github.com/USA-RedDragon/walletkit-bridge/internal/storage"
	"github.com/USA-RedDragon/walletkit-bridge/internal/walletkit"
)

type loopback struct {
	session *bridge.Session
	engine  *engine.Goja
	store   *walletkit.StorageManager
	events  chan events.Event
}

// newLoopback runs the embedded bridge script in goja behind a real session.
func newLoopback(t *testing.T, persistent storage.Store) *loopback {
	t.Helper()
	store := walletkit.NewStorageManager(persistent, true)
	g := engine.NewGoja(engine.DefaultScript, engine.DefaultScriptName, store)
	session := bridge.NewSession(g)
	session.Configure(bridge.Config{Network: "-239", APIURL: "https://tonapi.io"})
	t.Cleanup(func() {
		_ = session.Close()
	})

	lb := &loopback{
		session: session,
		engine:  g,
		store:   store,
		events:  make(chan events.Event, 32),
	}
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return lb
}

func (lb *loopback) listen(t *testing.T) {
	t.Helper()
	_, err := lb.session.AddEventHandler(context.Background(), events.HandlerFunc(func(_ string, ev events.Event) {
		lb.events <- ev
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (lb *loopback) next(t *testing.T, eventType events.EventType) events.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-lb.events:
			if ev.GetType() == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", eventType)
			return nil
		}
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoopbackWalletLifecycle(t *testing.T) {
	t.Parallel()
	lb := newLoopback(t, storage.NewMemory())
	ctx := testContext(t)
	wallet := walletkit.NewWalletOperations(lb.session)
	crypto := walletkit.NewCryptoOperations(lb.session)

	words, err := crypto.CreateMnemonic(ctx, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	added, err := wallet.AddWallet(ctx, walletkit.AddWalletRequest{Mnemonic: words})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(added.Address, "-239:") || added.Version != "v5r1" {
		t.Errorf("unexpected wallet %+v", added)
	}
	if again, err := wallet.AddWallet(ctx, walletkit.AddWalletRequest{Mnemonic: words}); err != nil || again.Address != added.Address {
		t.Errorf("expected adding the same wallet to be idempotent, got %+v (%v)", again, err)
	}

	wallets, err := wallet.GetWallets(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wallets) != 1 || wallets[0].Address != added.Address {
		t.Errorf("unexpected wallets %+v", wallets)
	}
	if balance, err := wallet.GetBalance(ctx, added.Address); err != nil || balance != "0" {
		t.Errorf("unexpected balance %q (%v)", balance, err)
	}

	if err := wallet.RemoveWallet(ctx, added.Address); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = wallet.RemoveWallet(ctx, added.Address)
	var bridgeErr *bridge.BridgeError
	if !errors.As(err, &bridgeErr) || !strings.Contains(bridgeErr.Message, "wallet not found") {
		t.Errorf("expected wallet not found, got %v", err)
	}

	state := lb.session.State()
	if !state.Initialized || state.Network != "-239" || state.APIBaseURL != "https://tonapi.io" {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestLoopbackConnectFlow(t *testing.T) {
	t.Parallel()
	lb := newLoopback(t, storage.NewMemory())
	ctx := testContext(t)
	wallet := walletkit.NewWalletOperations(lb.session)

	added, err := wallet.AddWallet(ctx, walletkit.AddWalletRequest{Mnemonic: []string{"abandon", "ability"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lb.listen(t)

	if err := wallet.HandleTonConnectURL(ctx, "tc://?v=2&id=demo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	request, ok := lb.next(t, events.EventTypeConnectRequest).(events.ConnectRequestEvent)
	if !ok || request.ID == "" {
		t.Fatalf("unexpected connect request %+v", request)
	}

	session, err := wallet.ApproveConnectRequest(ctx, request.ID, added.Address)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.SessionID == "" || session.WalletAddress != added.Address {
		t.Errorf("unexpected session %+v", session)
	}
	if _, err := wallet.ApproveConnectRequest(ctx, request.ID, added.Address); err == nil {
		t.Error("expected a request to be approved only once")
	}

	sessions, err := wallet.ListSessions(ctx)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("unexpected sessions %+v (%v)", sessions, err)
	}
	if err := wallet.Disconnect(ctx, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disconnect, ok := lb.next(t, events.EventTypeDisconnect).(events.DisconnectEvent)
	if !ok || disconnect.SessionID != session.SessionID {
		t.Errorf("unexpected disconnect %+v", disconnect)
	}
	if sessions, _ := wallet.ListSessions(ctx); len(sessions) != 0 {
		t.Errorf("expected no sessions, got %+v", sessions)
	}
}

func TestLoopbackBrowserRequests(t *testing.T) {
	t.Parallel()
	lb := newLoopback(t, storage.NewMemory())
	ctx := testContext(t)
	wallet := walletkit.NewWalletOperations(lb.session)
	lb.listen(t)

	raw, err := wallet.HandleBrowserRequest(ctx, "tab-1", json.RawMessage(`{"id":"1","method":"signData","params":{"type":"text","text":"hello"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var accepted struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(raw, &accepted); err != nil || accepted.RequestID == "" {
		t.Fatalf("unexpected result %s (%v)", raw, err)
	}
	request, ok := lb.next(t, events.EventTypeSignDataRequest).(events.SignDataRequestEvent)
	if !ok || request.ID != accepted.RequestID || request.SessionID != "tab-1" {
		t.Errorf("unexpected sign data request %+v", request)
	}
	signed, err := wallet.ApproveSignDataRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signed.Signature == "" || signed.Timestamp == 0 {
		t.Errorf("unexpected signature %+v", signed)
	}

	raw, err = wallet.HandleBrowserRequest(ctx, "tab-1", json.RawMessage(`{"id":"2","method":"sendTransaction","params":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(raw, &accepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lb.next(t, events.EventTypeTransactionRequest)
	if err := wallet.RejectTransactionRequest(ctx, accepted.RequestID, "user declined"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := wallet.ApproveTransactionRequest(ctx, accepted.RequestID); err == nil {
		t.Error("expected a rejected request to be gone")
	}
}

func TestLoopbackCrypto(t *testing.T) {
	t.Parallel()
	lb := newLoopback(t, nil)
	ctx := testContext(t)
	crypto := walletkit.NewCryptoOperations(lb.session)

	words := []string{"abandon", "ability", "able"}
	first, err := crypto.MnemonicToKeyPair(ctx, words, walletkit.MnemonicTypeTon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := crypto.MnemonicToKeyPair(ctx, words, walletkit.MnemonicTypeTon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second || len(first.PublicKey) != 64 {
		t.Errorf("expected a stable key pair, got %+v and %+v", first, second)
	}
	bip39, err := crypto.MnemonicToKeyPair(ctx, words, walletkit.MnemonicTypeBIP39)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bip39.PublicKey == first.PublicKey {
		t.Error("expected the mnemonic type to change the keys")
	}
	sig, err := crypto.Sign(ctx, "cafe", first.SecretKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sig) != 128 {
		t.Errorf("unexpected signature %q", sig)
	}
}

// A recreated JavaScript context announces ready again, and the listeners it
// lost are registered anew without another init.
func TestLoopbackRecoversFromContextLoss(t *testing.T) {
	t.Parallel()
	lb := newLoopback(t, storage.NewMemory())
	ctx := testContext(t)
	wallet := walletkit.NewWalletOperations(lb.session)
	lb.listen(t)
	lb.next(t, events.EventTypeReady)

	if err := lb.engine.Reload(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lb.next(t, events.EventTypeReady)

	deadline := time.Now().Add(2 * time.Second)
	for !lb.session.AreEventListenersSetUp() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !lb.session.AreEventListenersSetUp() {
		t.Fatal("expected listeners to be registered again")
	}

	if err := wallet.HandleTonConnectURL(ctx, "https://app.tonkeeper.com/ton-connect?id=1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lb.next(t, events.EventTypeConnectRequest)
}
