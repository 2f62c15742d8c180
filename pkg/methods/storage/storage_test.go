package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/morezero/method-pipe/pkg/di"
	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/pipe"
	"github.com/morezero/method-pipe/pkg/registry"
)

const storageTestPrefix = "storage:storage_test"

func newPipe(t *testing.T, svc Service) *pipe.Pipe {
	t.Helper()
	global := registry.New()
	if _, err := global.AutoRegisterAll(Entries(), registry.ScopeGlobal); err != nil {
		t.Fatalf("%s - AutoRegisterAll: %v", storageTestPrefix, err)
	}
	slot := di.NewSlot()
	slot.Inject(di.NewDefaultProvider(func(c *di.Container) {
		if svc != nil {
			di.RegisterInstance[Service](c, svc)
		}
	}))
	return pipe.New(pipe.Params{Global: global, Slot: slot})
}

func call(t *testing.T, p *pipe.Pipe, name string, params map[string]interface{}) pipe.Response {
	t.Helper()
	resp, err := p.Execute(context.Background(), pipe.Call{MethodName: name, Params: params}).Wait(context.Background())
	if err != nil {
		t.Fatalf("%s - Wait: %v", storageTestPrefix, err)
	}
	return resp
}

func TestStorageMethods_RoundTrip(t *testing.T) {
	p := newPipe(t, NewMemory())

	resp := call(t, p, MethodSetItem, map[string]interface{}{"key": "k", "data": map[string]interface{}{"n": 1.0}, "biz": "shop"})
	if !resp.Status.OK() {
		t.Fatalf("%s - setItem = %v", storageTestPrefix, resp.Status)
	}

	resp = call(t, p, MethodGetItem, map[string]interface{}{"key": "k", "biz": "shop"})
	data, ok := resp.Data["data"].(map[string]interface{})
	if !resp.Status.OK() || !ok || data["n"] != 1.0 {
		t.Errorf("%s - getItem = %+v", storageTestPrefix, resp)
	}

	resp = call(t, p, MethodGetItem, map[string]interface{}{"key": "k"})
	if _, present := resp.Data["data"]; !resp.Status.OK() || present {
		t.Errorf("%s - other namespace should be empty, got %+v", storageTestPrefix, resp)
	}

	if resp = call(t, p, MethodRemoveItem, map[string]interface{}{"key": "k", "biz": "shop"}); !resp.Status.OK() {
		t.Errorf("%s - removeItem = %v", storageTestPrefix, resp.Status)
	}
	resp = call(t, p, MethodGetItem, map[string]interface{}{"key": "k", "biz": "shop"})
	if _, present := resp.Data["data"]; present {
		t.Errorf("%s - removed item still present: %+v", storageTestPrefix, resp)
	}
}

func TestStorageMethods_Validation(t *testing.T) {
	p := newPipe(t, NewMemory())
	tests := []struct {
		name     string
		method   string
		params   map[string]interface{}
		wantCode method.Code
		wantMsg  string
	}{
		{"blank key", MethodSetItem, map[string]interface{}{"key": "  ", "data": "x"}, method.CodeInvalidParameter, MsgEmptyKey},
		{"missing data", MethodSetItem, map[string]interface{}{"key": "k"}, method.CodeInvalidParameter, "Missing required parameter(s): data"},
		{"null data", MethodSetItem, map[string]interface{}{"key": "k", "data": nil}, method.CodeInvalidParameter, MsgIllegalValueType},
		{"negative duration", MethodSetItem, map[string]interface{}{"key": "k", "data": 1.0, "validDuration": -1.0}, method.CodeInvalidParameter, "validDuration must be a non-negative number"},
		{"get missing key", MethodGetItem, map[string]interface{}{}, method.CodeInvalidParameter, "Missing required parameter(s): key"},
		{"get empty key", MethodGetItem, map[string]interface{}{"key": ""}, method.CodeInvalidParameter, MsgEmptyKey},
		{"remove empty key", MethodRemoveItem, map[string]interface{}{"key": ""}, method.CodeInvalidParameter, MsgEmptyKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, p, tt.method, tt.params)
			if resp.Status.Code != tt.wantCode || resp.Status.Message != tt.wantMsg {
				t.Errorf("%s - status = %v, want %d %q", storageTestPrefix, resp.Status, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

func TestStorageMethods_NotImplementedWithoutService(t *testing.T) {
	p := newPipe(t, nil)
	for _, name := range []string{MethodSetItem, MethodGetItem, MethodRemoveItem} {
		resp := call(t, p, name, map[string]interface{}{"key": "k", "data": true})
		if resp.Status.Code != method.CodeNotImplemented {
			t.Errorf("%s - %s code = %v, want not implemented", storageTestPrefix, name, resp.Status.Code)
		}
		if resp.Status.Message != "The method '"+name+"' is not implemented" {
			t.Errorf("%s - message = %q", storageTestPrefix, resp.Status.Message)
		}
	}
}

func TestStorageMethods_ZeroDurationExpiresImmediately(t *testing.T) {
	p := newPipe(t, NewMemory())
	call(t, p, MethodSetItem, map[string]interface{}{"key": "k", "data": "v", "validDuration": 0.0})
	resp := call(t, p, MethodGetItem, map[string]interface{}{"key": "k"})
	if _, present := resp.Data["data"]; present {
		t.Errorf("%s - zero duration item should be expired: %+v", storageTestPrefix, resp)
	}
}

type failingService struct{ Service }

func (failingService) GetItem(context.Context, string, string) (interface{}, bool, error) {
	return nil, false, errors.New("disk gone")
}

func TestStorageMethods_ServiceErrorFails(t *testing.T) {
	p := newPipe(t, failingService{NewMemory()})
	resp := call(t, p, MethodGetItem, map[string]interface{}{"key": "k"})
	if resp.Status.Code != method.CodeFailed {
		t.Errorf("%s - code = %v, want failed", storageTestPrefix, resp.Status.Code)
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.SetItem(ctx, "", "forever", "v", time.Time{})
	_ = m.SetItem(ctx, "", "short", "v", now.Add(time.Second))

	if _, ok, _ := m.GetItem(ctx, "", "short"); !ok {
		t.Errorf("%s - short item should be live", storageTestPrefix)
	}
	now = now.Add(time.Second)
	if _, ok, _ := m.GetItem(ctx, "", "short"); ok {
		t.Errorf("%s - short item should be expired at its deadline", storageTestPrefix)
	}
	if _, ok, _ := m.GetItem(ctx, "", "forever"); !ok {
		t.Errorf("%s - item without deadline should live", storageTestPrefix)
	}
	if m.Len() != 1 {
		t.Errorf("%s - expired item should be evicted, Len = %d", storageTestPrefix, m.Len())
	}
}

func TestStorageMethods_BlankKeyRejectedBeforeScheduling(t *testing.T) {
	global := registry.New()
	if _, err := global.AutoRegisterAll(Entries(), registry.ScopeGlobal); err != nil {
		t.Fatalf("%s - AutoRegisterAll: %v", storageTestPrefix, err)
	}
	slot := di.NewSlot()
	slot.Inject(di.NewDefaultProvider(func(c *di.Container) {
		di.RegisterInstance[Service](c, NewMemory())
	}))
	var posts int32
	p := pipe.New(pipe.Params{Global: global, Slot: slot, Main: pipe.SchedulerFunc(func(task func()) {
		atomic.AddInt32(&posts, 1)
		task()
	})})

	for _, name := range []string{MethodSetItem, MethodGetItem, MethodRemoveItem} {
		resp := call(t, p, name, map[string]interface{}{"key": " ", "data": "x"})
		if resp.Status.Code != method.CodeInvalidParameter || resp.Status.Message != MsgEmptyKey {
			t.Errorf("%s - %s status = %v", storageTestPrefix, name, resp.Status)
		}
	}
	if n := atomic.LoadInt32(&posts); n != 0 {
		t.Errorf("%s - blank keys were posted to the main thread %d times", storageTestPrefix, n)
	}
}
