package walletkit

import (
	"context"
	"encoding/json"
)

const (
	MethodGetWallets                  = "getWallets"
	MethodAddWallet                   = "addWallet"
	MethodRemoveWallet                = "removeWallet"
	MethodGetBalance                  = "getBalance"
	MethodHandleTonConnectURL         = "handleTonConnectUrl"
	MethodApproveConnectRequest       = "approveConnectRequest"
	MethodRejectConnectRequest        = "rejectConnectRequest"
	MethodApproveTransactionRequest   = "approveTransactionRequest"
	MethodRejectTransactionRequest    = "rejectTransactionRequest"
	MethodApproveSignDataRequest      = "approveSignDataRequest"
	MethodRejectSignDataRequest       = "rejectSignDataRequest"
	MethodListSessions                = "listSessions"
	MethodDisconnect                  = "disconnect"
	MethodProcessBrowserBridgeRequest = "processBrowserBridgeRequest"
)

type Wallet struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	Version   string `json:"version"`
	Network   string `json:"network"`
}

type AddWalletRequest struct {
	Mnemonic []string `json:"mnemonic"`
	Version  string   `json:"version,omitempty"`
	Network  string   `json:"network,omitempty"`
}

// SessionInfo is an established TON Connect session with a dApp.
type SessionInfo struct {
	SessionID     string `json:"sessionId"`
	DAppName      string `json:"dAppName"`
	DAppURL       string `json:"dAppUrl"`
	IconURL       string `json:"iconUrl,omitempty"`
	WalletAddress string `json:"walletAddress"`
}

type TransactionResult struct {
	BOC string `json:"boc"`
}

type SignDataResult struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

type addressParams struct {
	Address string `json:"address"`
}

type requestParams struct {
	RequestID     string `json:"requestId"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type WalletOperations struct {
	bridge Bridge
}

func NewWalletOperations(b Bridge) *WalletOperations {
	return &WalletOperations{bridge: b}
}

func (w *WalletOperations) GetWallets(ctx context.Context) ([]Wallet, error) {
	return invokeItems[Wallet](ctx, w.bridge, MethodGetWallets, nil)
}

func (w *WalletOperations) AddWallet(ctx context.Context, req AddWalletRequest) (Wallet, error) {
	return invokeObject[Wallet](ctx, w.bridge, MethodAddWallet, req)
}

func (w *WalletOperations) RemoveWallet(ctx context.Context, address string) error {
	_, err := invoke(ctx, w.bridge, MethodRemoveWallet, addressParams{Address: address})
	return err
}

// GetBalance returns the balance in nanotons.
func (w *WalletOperations) GetBalance(ctx context.Context, address string) (string, error) {
	raw, err := invokeValue(ctx, w.bridge, MethodGetBalance, addressParams{Address: address})
	if err != nil {
		return "", err
	}
	return scalarString(raw)
}

// HandleTonConnectURL hands a tc:// or universal link to WalletKit. The
// resulting request arrives as a connectRequest event.
func (w *WalletOperations) HandleTonConnectURL(ctx context.Context, url string) error {
	_, err := invoke(ctx, w.bridge, MethodHandleTonConnectURL, map[string]string{"url": url})
	return err
}

func (w *WalletOperations) ApproveConnectRequest(ctx context.Context, requestID, walletAddress string) (SessionInfo, error) {
	return invokeObject[SessionInfo](ctx, w.bridge, MethodApproveConnectRequest, requestParams{
		RequestID:     requestID,
		WalletAddress: walletAddress,
	})
}

func (w *WalletOperations) RejectConnectRequest(ctx context.Context, requestID, reason string) error {
	_, err := invoke(ctx, w.bridge, MethodRejectConnectRequest, requestParams{RequestID: requestID, Reason: reason})
	return err
}

func (w *WalletOperations) ApproveTransactionRequest(ctx context.Context, requestID string) (TransactionResult, error) {
	return invokeObject[TransactionResult](ctx, w.bridge, MethodApproveTransactionRequest, requestParams{RequestID: requestID})
}

func (w *WalletOperations) RejectTransactionRequest(ctx context.Context, requestID, reason string) error {
	_, err := invoke(ctx, w.bridge, MethodRejectTransactionRequest, requestParams{RequestID: requestID, Reason: reason})
	return err
}

func (w *WalletOperations) ApproveSignDataRequest(ctx context.Context, requestID string) (SignDataResult, error) {
	return invokeObject[SignDataResult](ctx, w.bridge, MethodApproveSignDataRequest, requestParams{RequestID: requestID})
}

func (w *WalletOperations) RejectSignDataRequest(ctx context.Context, requestID, reason string) error {
	_, err := invoke(ctx, w.bridge, MethodRejectSignDataRequest, requestParams{RequestID: requestID, Reason: reason})
	return err
}

func (w *WalletOperations) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	return invokeItems[SessionInfo](ctx, w.bridge, MethodListSessions, nil)
}

// Disconnect ends one session, or every session when sessionID is empty.
func (w *WalletOperations) Disconnect(ctx context.Context, sessionID string) error {
	var params any
	if sessionID != "" {
		params = map[string]string{"sessionId": sessionID}
	}
	_, err := invoke(ctx, w.bridge, MethodDisconnect, params)
	return err
}

// HandleBrowserRequest forwards a request a browser tab made through the
// injected bridge.
func (w *WalletOperations) HandleBrowserRequest(ctx context.Context, sessionID string, request json.RawMessage) (json.RawMessage, error) {
	return invoke(ctx, w.bridge, MethodProcessBrowserBridgeRequest, map[string]any{
		"sessionId": sessionID,
		"request":   request,
	})
}
