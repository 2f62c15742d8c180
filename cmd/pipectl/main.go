// Package main is pipectl, a command-line caller of a running method pipe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/morezero/method-pipe/pkg/client"
	"github.com/morezero/method-pipe/pkg/commsutil"
)

const usage = `Usage: pipectl [flags] <command> [args]

Commands:
  call <method> [json]        Call any method with a JSON object of params.
  open <scheme> [json]        router.open with optional JSON options.
  close [containerId]         router.close (defaults to -container).
  navigate <path> [json]      router.open on a scheme built from path and JSON query params.
  get <key>                   storage.getItem.
  set <key> <json>            storage.setItem with a JSON value.
  remove <key>                storage.removeItem.
  methods                     List the methods of the pipe over HTTP.

Flags:
  -comms URL        NATS URL (default COMMS_URL or nats://127.0.0.1:4222)
  -http URL         HTTP base URL for methods (default PIPE_HTTP_URL or http://127.0.0.1:8080)
  -container ID     container id stamped on every call
  -thread NAME      MAIN_THREAD (default) or CURRENT_THREAD
  -biz NAME         storage namespace
  -valid SECONDS    storage validDuration (negative: keep forever)
  -no-animation     close without animation
  -timeout DUR      call timeout (default 10s)
`

type options struct {
	commsURL    string
	httpURL     string
	container   string
	thread      string
	biz         string
	valid       float64
	noAnimation bool
	timeout     time.Duration
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}
	fs := flag.NewFlagSet("pipectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&opts.commsURL, "comms", envOr("COMMS_URL", "nats://127.0.0.1:4222"), "NATS URL")
	fs.StringVar(&opts.httpURL, "http", envOr("PIPE_HTTP_URL", "http://127.0.0.1:8080"), "HTTP base URL")
	fs.StringVar(&opts.container, "container", "", "container id")
	fs.StringVar(&opts.thread, "thread", "", "thread name")
	fs.StringVar(&opts.biz, "biz", "", "storage namespace")
	fs.Float64Var(&opts.valid, "valid", -1, "storage validDuration in seconds")
	fs.BoolVar(&opts.noAnimation, "no-animation", false, "close without animation")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Second, "call timeout")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs.Args(), nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "methods":
		if err := listMethods(ctx, http.DefaultClient, opts.httpURL, stdout); err != nil {
			fmt.Fprintf(stderr, "pipectl methods: %v\n", err)
			return 1
		}
		return 0
	}

	nc, err := commsutil.Connect(commsutil.ConnectParams{URL: opts.commsURL, Name: "pipectl"})
	if err != nil {
		fmt.Fprintf(stderr, "pipectl: %v\n", err)
		return 1
	}
	defer nc.Close()

	c := client.NewClient(client.NewClientParams{
		Transport:   client.NewNATSTransport(nc, ""),
		ContainerID: opts.container,
		Thread:      opts.thread,
	})
	resp, err := execute(ctx, c, opts, cmd, cmdArgs)
	if err != nil {
		fmt.Fprintf(stderr, "pipectl %s: %v\n%s", cmd, err, usage)
		return 2
	}
	printJSON(stdout, resp)
	if !resp.OK() {
		return 1
	}
	return 0
}

// execute maps a command onto a client call. Errors are usage errors; call
// failures come back in the Response.
func execute(ctx context.Context, c *client.Client, opts *options, cmd string, args []string) (client.Response, error) {
	switch cmd {
	case "call":
		if len(args) < 1 {
			return client.Response{}, fmt.Errorf("require <method>")
		}
		params := map[string]interface{}{}
		if len(args) > 1 {
			var err error
			if params, err = parseObject(args[1]); err != nil {
				return client.Response{}, err
			}
		}
		return c.Call(ctx, args[0], params), nil

	case "open":
		if len(args) < 1 {
			return client.Response{}, fmt.Errorf("require <scheme>")
		}
		req := &client.OpenRequest{Scheme: args[0]}
		if len(args) > 1 {
			options, err := parseObject(args[1])
			if err != nil {
				return client.Response{}, err
			}
			req.Options = options
		}
		return c.Router().Open(ctx, req), nil

	case "close":
		req := &client.CloseRequest{ContainerID: opts.container}
		if len(args) > 0 {
			req.ContainerID = args[0]
		}
		if opts.noAnimation {
			animated := false
			req.Animated = &animated
		}
		return c.Router().Close(ctx, req), nil

	case "navigate":
		if len(args) < 1 {
			return client.Response{}, fmt.Errorf("require <path>")
		}
		req := &client.NavigateRequest{Path: args[0]}
		if len(args) > 1 {
			params, err := parseObject(args[1])
			if err != nil {
				return client.Response{}, err
			}
			req.Params = params
		}
		return c.Router().Navigate(ctx, req), nil

	case "get":
		if len(args) < 1 {
			return client.Response{}, fmt.Errorf("require <key>")
		}
		return c.Storage().GetItem(ctx, &client.GetItemRequest{Key: args[0], Biz: opts.biz}), nil

	case "set":
		if len(args) < 2 {
			return client.Response{}, fmt.Errorf("require <key> <json>")
		}
		var value interface{}
		if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
			return client.Response{}, fmt.Errorf("value is not JSON: %w", err)
		}
		req := &client.SetItemRequest{Key: args[0], Data: value, Biz: opts.biz}
		if opts.valid >= 0 {
			valid := opts.valid
			req.ValidDuration = &valid
		}
		return c.Storage().SetItem(ctx, req), nil

	case "remove":
		if len(args) < 1 {
			return client.Response{}, fmt.Errorf("require <key>")
		}
		return c.Storage().RemoveItem(ctx, &client.RemoveItemRequest{Key: args[0], Biz: opts.biz}), nil
	}
	return client.Response{}, fmt.Errorf("unknown command %q", cmd)
}

func parseObject(s string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	if obj == nil {
		obj = map[string]interface{}{}
	}
	return obj, nil
}

func listMethods(ctx context.Context, hc *http.Client, baseURL string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/methods", nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /methods: %s", resp.Status)
	}
	var body interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode /methods: %w", err)
	}
	printJSON(out, body)
	return nil
}

func printJSON(out io.Writer, v interface{}) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
