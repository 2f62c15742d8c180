package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/registry"
)

const logPrefix = "storage:methods"

// Method names.
const (
	MethodSetItem    = "storage.setItem"
	MethodGetItem    = "storage.getItem"
	MethodRemoveItem = "storage.removeItem"
)

// Messages shared with the scripting side. MsgEmptyKey matches the msg tag of
// the Key params.
const (
	MsgEmptyKey         = "Key in the params is empty"
	MsgIllegalValueType = "Illegal value type"
)

// SetItemParams are the params of storage.setItem. ValidDuration is in
// seconds from now.
type SetItemParams struct {
	Key           string      `json:"key" model:"required,nonempty" msg:"Key in the params is empty"`
	Data          interface{} `json:"data" model:"required"`
	Biz           string      `json:"biz"`
	ValidDuration *float64    `json:"validDuration" model:"min=0"`
}

// GetItemParams are the params of storage.getItem.
type GetItemParams struct {
	Key string `json:"key" model:"required,nonempty" msg:"Key in the params is empty"`
	Biz string `json:"biz"`
}

// GetItemResult carries the stored value. Data is omitted when nothing is
// stored.
type GetItemResult struct {
	Data interface{} `json:"data,omitempty"`
}

// RemoveItemParams are the params of storage.removeItem.
type RemoveItemParams struct {
	Key string `json:"key" model:"required,nonempty" msg:"Key in the params is empty"`
	Biz string `json:"biz"`
}

// Empty is the result of methods that return no fields.
type Empty struct{}

// NewSetItem builds storage.setItem.
func NewSetItem() method.Method {
	return method.New[SetItemParams, Empty](MethodSetItem, func(ctx context.Context, inv *method.Invocation, p SetItemParams, done func(method.Status, *Empty)) {
		if !storable(p.Data) {
			done(method.InvalidParam(MsgIllegalValueType), nil)
			return
		}
		svc, ok := From(inv.Services)
		if !ok {
			done(method.NotImplemented(MethodSetItem), nil)
			return
		}

		var expiresAt time.Time
		if p.ValidDuration != nil {
			expiresAt = time.Now().Add(time.Duration(*p.ValidDuration * float64(time.Second)))
		}
		if err := svc.SetItem(ctx, p.Biz, p.Key, p.Data, expiresAt); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to set %s/%s: %v", logPrefix, p.Biz, p.Key, err))
			done(method.Fail(fmt.Sprintf("failed to set storage item: %v", err)), nil)
			return
		}
		done(method.OK(), &Empty{})
	})
}

// NewGetItem builds storage.getItem.
func NewGetItem() method.Method {
	return method.New[GetItemParams, GetItemResult](MethodGetItem, func(ctx context.Context, inv *method.Invocation, p GetItemParams, done func(method.Status, *GetItemResult)) {
		svc, ok := From(inv.Services)
		if !ok {
			done(method.NotImplemented(MethodGetItem), nil)
			return
		}
		value, found, err := svc.GetItem(ctx, p.Biz, p.Key)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to get %s/%s: %v", logPrefix, p.Biz, p.Key, err))
			done(method.Fail(fmt.Sprintf("failed to properly getStorageItem: %v", err)), nil)
			return
		}
		if !found {
			done(method.OK(), &GetItemResult{})
			return
		}
		done(method.OK(), &GetItemResult{Data: value})
	})
}

// NewRemoveItem builds storage.removeItem.
func NewRemoveItem() method.Method {
	return method.New[RemoveItemParams, Empty](MethodRemoveItem, func(ctx context.Context, inv *method.Invocation, p RemoveItemParams, done func(method.Status, *Empty)) {
		svc, ok := From(inv.Services)
		if !ok {
			done(method.NotImplemented(MethodRemoveItem), nil)
			return
		}
		if err := svc.RemoveItem(ctx, p.Biz, p.Key); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to remove %s/%s: %v", logPrefix, p.Biz, p.Key, err))
			done(method.Fail(fmt.Sprintf("failed to remove storage item: %v", err)), nil)
			return
		}
		done(method.OK(), &Empty{})
	})
}

// storable reports whether v is a JSON value other than null.
func storable(v interface{}) bool {
	switch v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		[]interface{}, map[string]interface{}:
		return true
	}
	return false
}

// Entries lists the storage methods for a manifest.
func Entries() registry.Manifest {
	return registry.Manifest{
		{Name: MethodSetItem, Scope: registry.ScopeGlobal, New: NewSetItem},
		{Name: MethodGetItem, Scope: registry.ScopeGlobal, New: NewGetItem},
		{Name: MethodRemoveItem, Scope: registry.ScopeGlobal, New: NewRemoveItem},
	}
}
