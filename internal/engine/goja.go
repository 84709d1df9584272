package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

const (
	// NativeObjectName is the global the bridge script uses to reach the host.
	NativeObjectName = "WalletKitNative"

	storageTimeout = 10 * time.Second
)

// Goja hosts the WalletKit bridge script in an embedded JavaScript runtime.
// All script execution happens on the event loop goroutine.
type Goja struct {
	host

	script   string
	filename string
	storage  Storage

	mu   sync.Mutex
	loop *eventloop.EventLoop
}

func NewGoja(script, filename string, storage Storage) *Goja {
	return &Goja{
		host:     newHost(),
		script:   script,
		filename: filename,
		storage:  storage,
	}
}

// Start creates the runtime, installs the host bindings and evaluates the
// bridge script.
func (g *Goja) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loop != nil {
		return nil
	}
	return g.startLocked(ctx)
}

func (g *Goja) startLocked(ctx context.Context) error {
	loop := eventloop.NewEventLoop(eventloop.EnableConsole(false))
	loop.Start()
	g.loop = loop
	g.Initialized.Complete()

	errCh := make(chan error, 1)
	scheduled := loop.RunOnLoop(func(vm *goja.Runtime) {
		if err := g.installBindings(vm); err != nil {
			errCh <- err
			return
		}
		_, err := vm.RunScript(g.filename, g.script)
		errCh <- err
	})
	if !scheduled {
		return ErrEngineStopped
	}

	select {
	case err := <-errCh:
		if err != nil {
			err = fmt.Errorf("failed to evaluate %s: %w", g.filename, err)
			g.Latches.Fail(err)
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	g.BridgeLoaded.Complete()
	g.JSReady.Complete()
	slog.Info("Bridge script loaded", "filename", g.filename)
	return nil
}

// Reload discards the JavaScript context and evaluates the bridge script in a
// fresh one. The native side only learns about it from the next ready message.
func (g *Goja) Reload(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loop != nil {
		g.loop.Stop()
		g.loop = nil
	}
	slog.Warn("Reloading JavaScript context")
	return g.startLocked(ctx)
}

func (g *Goja) ExecuteJavaScript(script string) error {
	g.mu.Lock()
	loop := g.loop
	g.mu.Unlock()
	if loop == nil {
		return ErrEngineStopped
	}
	scheduled := loop.RunOnLoop(func(vm *goja.Runtime) {
		if _, err := vm.RunString(script); err != nil {
			slog.Error("JavaScript execution failed", "error", err)
		}
	})
	if !scheduled {
		return ErrEngineStopped
	}
	return nil
}

// Evaluate runs a script on the loop and returns its exported result.
func (g *Goja) Evaluate(ctx context.Context, script string) (any, error) {
	g.mu.Lock()
	loop := g.loop
	g.mu.Unlock()
	if loop == nil {
		return nil, ErrEngineStopped
	}

	type result struct {
		value any
		err   error
	}
	resCh := make(chan result, 1)
	scheduled := loop.RunOnLoop(func(vm *goja.Runtime) {
		v, err := vm.RunString(script)
		if err != nil {
			resCh <- result{err: err}
			return
		}
		resCh <- result{value: v.Export()}
	})
	if !scheduled {
		return nil, ErrEngineStopped
	}

	select {
	case res := <-resCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Goja) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loop != nil {
		g.loop.Stop()
		g.loop = nil
	}
	g.Latches.Fail(ErrEngineStopped)
	return nil
}

func (g *Goja) installBindings(vm *goja.Runtime) error {
	native := vm.NewObject()
	bindings := map[string]func(goja.FunctionCall) goja.Value{
		"postMessage": func(call goja.FunctionCall) goja.Value {
			g.deliver([]byte(call.Argument(0).String()))
			return goja.Undefined()
		},
		"log": func(call goja.FunctionCall) goja.Value {
			jsLog(call.Argument(0).String(), call.Argument(1).String())
			return goja.Undefined()
		},
		"storageGet": func(call goja.FunctionCall) goja.Value {
			if g.storage == nil {
				return goja.Null()
			}
			ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
			defer cancel()
			value, ok, err := g.storage.Get(ctx, call.Argument(0).String())
			if err != nil {
				panic(vm.NewGoError(err))
			}
			if !ok {
				return goja.Null()
			}
			return vm.ToValue(value)
		},
		"storageSet": func(call goja.FunctionCall) goja.Value {
			g.storageOp(vm, func(ctx context.Context) error {
				return g.storage.Set(ctx, call.Argument(0).String(), call.Argument(1).String())
			})
			return goja.Undefined()
		},
		"storageRemove": func(call goja.FunctionCall) goja.Value {
			g.storageOp(vm, func(ctx context.Context) error {
				return g.storage.Remove(ctx, call.Argument(0).String())
			})
			return goja.Undefined()
		},
		"storageClear": func(call goja.FunctionCall) goja.Value {
			g.storageOp(vm, func(ctx context.Context) error {
				return g.storage.Clear(ctx)
			})
			return goja.Undefined()
		},
	}
	for name, fn := range bindings {
		if err := native.Set(name, fn); err != nil {
			return fmt.Errorf("failed to bind %s.%s: %w", NativeObjectName, name, err)
		}
	}
	if err := vm.Set(NativeObjectName, native); err != nil {
		return fmt.Errorf("failed to install %s: %w", NativeObjectName, err)
	}

	if err := vm.Set("atob", func(call goja.FunctionCall) goja.Value {
		decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
		if err != nil {
			panic(vm.NewTypeError("atob: %v", err))
		}
		return vm.ToValue(string(decoded))
	}); err != nil {
		return fmt.Errorf("failed to install atob: %w", err)
	}
	if err := vm.Set("btoa", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(base64.StdEncoding.EncodeToString([]byte(call.Argument(0).String())))
	}); err != nil {
		return fmt.Errorf("failed to install btoa: %w", err)
	}
	return nil
}

func (g *Goja) storageOp(vm *goja.Runtime, op func(ctx context.Context) error) {
	if g.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := op(ctx); err != nil {
		panic(vm.NewGoError(err))
	}
}

func jsLog(level, msg string) {
	switch level {
	case "debug":
		slog.Debug(msg, "source", "js")
	case "warn":
		slog.Warn(msg, "source", "js")
	case "error":
		slog.Error(msg, "source", "js")
	default:
		slog.Info(msg, "source", "js")
	}
}
