package client

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/morezero/method-pipe/pkg/methods/router"
)

// DefaultRouterScheme is the base scheme of Navigate.
const DefaultRouterScheme = "hybrid://lynxview_page"

var protocolRegex = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)

var leadingRelative = regexp.MustCompile(`^(?:\./|/)+`)

var trailingQuery = regexp.MustCompile(`[?&]+$`)

// allowedSchemeParams are the query keys Navigate forwards.
var allowedSchemeParams = map[string]bool{
	"bundle":             true,
	"title":              true,
	"fallback_url":       true,
	"title_color":        true,
	"hide_nav_bar":       true,
	"nav_bar_color":      true,
	"screen_orientation": true,
	"hide_status_bar":    true,
	"trans_status_bar":   true,
	"hide_loading":       true,
	"loading_bg_color":   true,
	"container_bg_color": true,
	"hide_error":         true,
	"force_theme_style":  true,
}

// OpenRequest is the input of Router.Open. Options are sent alongside the
// scheme.
type OpenRequest struct {
	Scheme  string
	Options map[string]interface{}
}

// CloseRequest is the input of Router.Close. A nil request closes the
// current container.
type CloseRequest struct {
	ContainerID string
	Animated    *bool
}

// NavigateRequest is the input of Router.Navigate.
type NavigateRequest struct {
	// Path is the bundle path, relative to the base scheme.
	Path string
	// BaseScheme defaults to DefaultRouterScheme.
	BaseScheme string
	// Params become query parameters when their key is allowed.
	Params map[string]interface{}
	// Options are sent to router.open.
	Options map[string]interface{}
}

// Router calls router.* methods.
type Router struct {
	client *Client
}

// Open validates req and calls router.open.
func (r *Router) Open(ctx context.Context, req *OpenRequest) Response {
	if req == nil {
		return invalid(InvalidParamsNil)
	}
	scheme := strings.TrimSpace(req.Scheme)
	if scheme == "" {
		return invalid("Invalid params: scheme must be a non-empty string")
	}
	params := make(map[string]interface{}, len(req.Options)+1)
	for k, v := range req.Options {
		params[k] = v
	}
	params["scheme"] = scheme
	resp := r.client.Call(ctx, router.MethodOpen, params)
	resp.Data = nil
	return resp
}

// Close calls router.close.
func (r *Router) Close(ctx context.Context, req *CloseRequest) Response {
	params := map[string]interface{}{}
	if req != nil {
		if req.ContainerID != "" {
			params["containerID"] = req.ContainerID
		}
		if req.Animated != nil {
			params["animated"] = *req.Animated
		}
	}
	resp := r.client.Call(ctx, router.MethodClose, params)
	resp.Data = nil
	return resp
}

// Navigate builds a scheme from a relative bundle path and opens it.
func (r *Router) Navigate(ctx context.Context, req *NavigateRequest) Response {
	if req == nil {
		return invalid(InvalidParamsNil)
	}
	if strings.TrimSpace(req.Path) == "" {
		return invalid("Invalid params: path must be a non-empty string")
	}
	if protocolRegex.MatchString(strings.TrimSpace(req.Path)) {
		return invalid("Invalid params: path must be a relative path, not a full scheme")
	}
	bundle := NormalizePath(req.Path)
	if bundle == "" {
		return invalid("Invalid params: path must resolve to a bundle name")
	}
	return r.Open(ctx, &OpenRequest{
		Scheme:  BuildScheme(req.BaseScheme, bundle, req.Params),
		Options: req.Options,
	})
}

// NormalizePath trims path and strips leading "./" and "/" segments.
func NormalizePath(path string) string {
	return leadingRelative.ReplaceAllString(strings.TrimSpace(path), "")
}

// BuildScheme returns base?bundle=<bundle> followed by the allowed params in
// key order. Nil values are skipped.
func BuildScheme(base, bundle string, params map[string]interface{}) string {
	base = trailingQuery.ReplaceAllString(strings.TrimSpace(base), "")
	if base == "" {
		base = DefaultRouterScheme
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?bundle=")
	b.WriteString(url.QueryEscape(bundle))

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if allowedSchemeParams[k] && v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(url.QueryEscape(k))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(fmt.Sprint(params[k])))
	}
	return b.String()
}
