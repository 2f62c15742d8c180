package client

import (
	"context"
	"strings"

	"github.com/morezero/method-pipe/pkg/methods/storage"
)

const invalidKeyMsg = "Invalid params: key must be a non-empty string"

// SetItemRequest is the input of Storage.SetItem. A nil Data is undefined.
type SetItemRequest struct {
	Key           string
	Data          interface{}
	Biz           string
	ValidDuration *float64
}

// GetItemRequest is the input of Storage.GetItem.
type GetItemRequest struct {
	Key string
	Biz string
}

// RemoveItemRequest is the input of Storage.RemoveItem.
type RemoveItemRequest struct {
	Key string
	Biz string
}

// Storage calls storage.* methods.
type Storage struct {
	client *Client
}

// SetItem validates req and calls storage.setItem.
func (s *Storage) SetItem(ctx context.Context, req *SetItemRequest) Response {
	if req == nil {
		return invalid(InvalidParamsNil)
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return invalid(invalidKeyMsg)
	}
	if req.Data == nil {
		return invalid("Invalid params: data cannot be undefined")
	}
	if req.ValidDuration != nil && *req.ValidDuration < 0 {
		return invalid("Invalid params: validDuration must be a non-negative number")
	}
	params := map[string]interface{}{"key": key, "data": req.Data}
	if req.Biz != "" {
		params["biz"] = req.Biz
	}
	if req.ValidDuration != nil {
		params["validDuration"] = *req.ValidDuration
	}
	return s.client.Call(ctx, storage.MethodSetItem, params)
}

// GetItem validates req and calls storage.getItem.
func (s *Storage) GetItem(ctx context.Context, req *GetItemRequest) Response {
	if req == nil {
		return invalid(InvalidParamsNil)
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return invalid(invalidKeyMsg)
	}
	return s.client.Call(ctx, storage.MethodGetItem, keyParams(key, req.Biz))
}

// RemoveItem validates req and calls storage.removeItem.
func (s *Storage) RemoveItem(ctx context.Context, req *RemoveItemRequest) Response {
	if req == nil {
		return invalid(InvalidParamsNil)
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return invalid(invalidKeyMsg)
	}
	return s.client.Call(ctx, storage.MethodRemoveItem, keyParams(key, req.Biz))
}

func keyParams(key, biz string) map[string]interface{} {
	params := map[string]interface{}{"key": key}
	if biz != "" {
		params["biz"] = biz
	}
	return params
}
