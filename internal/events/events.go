package events

import "encoding/json"

type EventType string

const (
	EventTypeReady                EventType = "ready"
	EventTypeConnectRequest       EventType = "connectRequest"
	EventTypeTransactionRequest   EventType = "transactionRequest"
	EventTypeSignDataRequest      EventType = "signDataRequest"
	EventTypeDisconnect           EventType = "disconnect"
	EventTypeRequestError         EventType = "requestError"
	EventTypeBrowserPageStarted   EventType = "browserPageStarted"
	EventTypeBrowserPageFinished  EventType = "browserPageFinished"
	EventTypeBrowserError         EventType = "browserError"
	EventTypeBrowserBridgeRequest EventType = "browserBridgeRequest"
)

type Event interface {
	GetType() EventType
}

type ReadyEvent struct {
	Network   string          `json:"network,omitempty"`
	TonAPIURL string          `json:"tonApiUrl,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

func (e ReadyEvent) GetType() EventType {
	return EventTypeReady
}

// DAppInfo describes the dApp behind a request, as far as the manifest tells.
type DAppInfo struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	IconURL  string `json:"iconUrl,omitempty"`
	Manifest string `json:"manifestUrl,omitempty"`
}

type ConnectRequestEvent struct {
	ID             string          `json:"id"`
	DApp           DAppInfo        `json:"dAppInfo"`
	RequestedItems json.RawMessage `json:"requestedItems,omitempty"`
	Preview        json.RawMessage `json:"preview,omitempty"`
	Request        json.RawMessage `json:"request"`
}

func (e ConnectRequestEvent) GetType() EventType {
	return EventTypeConnectRequest
}

type TransactionRequestEvent struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"sessionId,omitempty"`
	WalletAddress string          `json:"walletAddress,omitempty"`
	DApp          DAppInfo        `json:"dAppInfo"`
	Preview       json.RawMessage `json:"preview,omitempty"`
	Request       json.RawMessage `json:"request"`
}

func (e TransactionRequestEvent) GetType() EventType {
	return EventTypeTransactionRequest
}

type SignDataRequestEvent struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"sessionId,omitempty"`
	WalletAddress string          `json:"walletAddress,omitempty"`
	DApp          DAppInfo        `json:"dAppInfo"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Request       json.RawMessage `json:"request"`
}

func (e SignDataRequestEvent) GetType() EventType {
	return EventTypeSignDataRequest
}

type DisconnectEvent struct {
	SessionID string `json:"sessionId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (e DisconnectEvent) GetType() EventType {
	return EventTypeDisconnect
}

type RequestErrorEvent struct {
	ID      string `json:"id,omitempty"`
	Method  string `json:"method,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e RequestErrorEvent) GetType() EventType {
	return EventTypeRequestError
}

// BrowserEvent covers the page lifecycle and bridge traffic of an in-app
// browser tab.
type BrowserEvent struct {
	Type      EventType       `json:"-"`
	SessionID string          `json:"sessionId,omitempty"`
	URL       string          `json:"url,omitempty"`
	Message   string          `json:"message,omitempty"`
	Request   json.RawMessage `json:"request,omitempty"`
}

func (e BrowserEvent) GetType() EventType {
	return e.Type
}
