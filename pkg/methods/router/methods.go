package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/model"
	"github.com/morezero/method-pipe/pkg/registry"
)

const logPrefix = "router:methods"

// Method names.
const (
	MethodOpen  = "router.open"
	MethodClose = "router.close"
)

// Replace strategies of router.open.
const (
	AlwaysCloseBeforeOpen     = "alwaysCloseBeforeOpen"
	AlwaysCloseAfterOpen      = "alwaysCloseAfterOpen"
	OnlyCloseAfterOpenSucceed = "onlyCloseAfterOpenSucceed"
)

var replaceTypes = []string{AlwaysCloseAfterOpen, AlwaysCloseBeforeOpen, OnlyCloseAfterOpenSucceed}

// MsgEmptyScheme is returned for a blank scheme; it matches the msg tag of
// OpenParams.Scheme.
const MsgEmptyScheme = "Invalid params: scheme must be a non-empty string"

// OpenParams are the params of router.open.
type OpenParams struct {
	Scheme        string                 `json:"scheme" model:"required,nonempty" msg:"Invalid params: scheme must be a non-empty string"`
	Replace       bool                   `json:"replace"`
	ReplaceType   string                 `json:"replaceType"`
	UseSysBrowser bool                   `json:"useSysBrowser"`
	Animated      bool                   `json:"animated" default:"true"`
	Interceptor   string                 `json:"interceptor"`
	Extra         map[string]interface{} `json:"extra"`
	UsePost       bool                   `json:"usePost"`
	PostBody      string                 `json:"postBody"`
	PostHeader    map[string]interface{} `json:"postHeader"`
}

// Validate implements model.Validator.
func (p OpenParams) Validate() error {
	if p.ReplaceType == "" {
		return nil
	}
	for _, rt := range replaceTypes {
		if p.ReplaceType == rt {
			return nil
		}
	}
	return &model.ValidationError{
		Field:      "replaceType",
		Constraint: "oneof",
		Message:    fmt.Sprintf("Invalid replaceType: %s. Valid values are: %s", p.ReplaceType, strings.Join(replaceTypes, ", ")),
	}
}

// CloseParams are the params of router.close.
type CloseParams struct {
	ContainerID string `json:"containerID"`
	Animated    bool   `json:"animated" default:"true"`
}

// Empty is the result of the router methods.
type Empty struct{}

// NewOpen builds router.open.
func NewOpen() method.Method {
	return method.New[OpenParams, Empty](MethodOpen, func(ctx context.Context, inv *method.Invocation, p OpenParams, done func(method.Status, *Empty)) {
		scheme := strings.TrimSpace(p.Scheme)
		svc, ok := From(inv.Services)
		if !ok {
			done(method.NotImplemented(MethodOpen), nil)
			return
		}

		req := OpenRequest{
			ContainerID:   inv.ContainerID,
			Scheme:        scheme,
			UseSysBrowser: p.UseSysBrowser,
			Animated:      p.Animated,
			Interceptor:   p.Interceptor,
			Extra:         p.Extra,
		}
		if p.UsePost {
			body, err := url.QueryUnescape(p.PostBody)
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - failed to decode postBody: %v", logPrefix, err))
				body = p.PostBody
			}
			req.Post = &PostConfig{Body: body, Header: p.PostHeader}
		}

		if open(ctx, svc, inv.ContainerID, p, req) {
			done(method.OK(), &Empty{})
			return
		}
		done(method.Fail(fmt.Sprintf("Failed to open scheme: %s", scheme)), nil)
	})
}

func open(ctx context.Context, svc Service, containerID string, p OpenParams, req OpenRequest) bool {
	openScheme := func() bool {
		ok, err := svc.OpenScheme(ctx, req)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to open %s: %v", logPrefix, req.Scheme, err))
			return false
		}
		return ok
	}
	closeView := func() {
		if _, err := svc.CloseView(ctx, containerID, p.Animated); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to close %s: %v", logPrefix, containerID, err))
		}
	}

	if !p.Replace {
		return openScheme()
	}
	switch p.ReplaceType {
	case AlwaysCloseBeforeOpen:
		closeView()
		return openScheme()
	case AlwaysCloseAfterOpen:
		opened := openScheme()
		closeView()
		return opened
	default:
		opened := openScheme()
		if opened {
			closeView()
		}
		return opened
	}
}

// NewClose builds router.close.
func NewClose() method.Method {
	return method.New[CloseParams, Empty](MethodClose, func(ctx context.Context, inv *method.Invocation, p CloseParams, done func(method.Status, *Empty)) {
		svc, ok := From(inv.Services)
		if !ok {
			done(method.NotImplemented(MethodClose), nil)
			return
		}
		target := p.ContainerID
		if target == "" {
			target = inv.ContainerID
		}
		closed, err := svc.CloseView(ctx, target, p.Animated)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to close %s: %v", logPrefix, target, err))
		}
		if err == nil && closed {
			done(method.OK(), &Empty{})
			return
		}
		if strings.TrimSpace(p.ContainerID) == "" {
			done(method.Fail("Failed to close current container"), nil)
			return
		}
		done(method.Fail(fmt.Sprintf("Failed to close container: %s", p.ContainerID)), nil)
	})
}

// Entries lists the router methods for a manifest.
func Entries() registry.Manifest {
	return registry.Manifest{
		{Name: MethodOpen, Scope: registry.ScopeGlobal, New: NewOpen},
		{Name: MethodClose, Scope: registry.ScopeGlobal, New: NewClose},
	}
}
