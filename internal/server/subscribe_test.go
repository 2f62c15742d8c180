package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	comms "github.com/nats-io/nats.go"
	commsserver "github.com/nats-io/nats-server/v2/server"

	"github.com/morezero/method-pipe/pkg/client"
	"github.com/morezero/method-pipe/pkg/commsutil"
	"github.com/morezero/method-pipe/pkg/events"
	"github.com/morezero/method-pipe/pkg/method"
)

const subscribeTestPrefix = "server:subscribe_test"

func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: port, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", subscribeTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", subscribeTestPrefix)
	}
	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", subscribeTestPrefix, err)
	}
	return nc, func() {
		nc.Close()
		ns.Shutdown()
	}
}

func TestSubscribe_CallsAndContainers(t *testing.T) {
	nc, cleanup := startTestServer(t, 14237)
	defer cleanup()

	s := testServer(t, NewServerParams{Conn: nc})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("%s - Subscribe: %v", subscribeTestPrefix, err)
	}

	routeEvents := make(chan *events.PipeEvent, 4)
	evSub, err := nc.Subscribe(commsutil.BuildEventSubject(commsutil.SubjectEventPrefix, "router.open"), func(msg *comms.Msg) {
		var ev events.PipeEvent
		if err := json.Unmarshal(msg.Data, &ev); err == nil {
			routeEvents <- &ev
		}
	})
	if err != nil {
		t.Fatalf("%s - subscribe events: %v", subscribeTestPrefix, err)
	}
	defer evSub.Unsubscribe()

	c := client.NewClient(client.NewClientParams{
		Transport:   client.NewNATSTransport(nc, ""),
		ContainerID: "view-1",
	})

	if got := c.Storage().SetItem(ctx, &client.SetItemRequest{Key: "k", Data: "v"}); !got.OK() {
		t.Fatalf("%s - SetItem = %+v", subscribeTestPrefix, got)
	}
	if got := c.Storage().GetItem(ctx, &client.GetItemRequest{Key: "k"}); !got.OK() || got.Data["data"] != "v" {
		t.Errorf("%s - GetItem = %+v", subscribeTestPrefix, got)
	}

	if got := c.Router().Open(ctx, &client.OpenRequest{Scheme: "hybrid://lynxview_page?bundle=main"}); !got.OK() {
		t.Fatalf("%s - Open = %+v", subscribeTestPrefix, got)
	}
	select {
	case ev := <-routeEvents:
		if ev.ContainerID != "view-1" {
			t.Errorf("%s - route event container = %q, want view-1", subscribeTestPrefix, ev.ContainerID)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("%s - no router.open event", subscribeTestPrefix)
	}

	tests := []struct {
		name           string
		msg            ContainerMessage
		wantOK         bool
		wantDestroying bool
	}{
		{name: "destroying", msg: ContainerMessage{Action: ContainerDestroying, ContainerID: "view-1"}, wantOK: true, wantDestroying: true},
		{name: "detach", msg: ContainerMessage{Action: ContainerDetach, ContainerID: "view-1"}, wantOK: true},
		{name: "unknown action", msg: ContainerMessage{Action: "explode", ContainerID: "view-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := json.Marshal(tt.msg)
			reply, err := nc.Request(commsutil.SubjectContainer, data, 5*time.Second)
			if err != nil {
				t.Fatalf("%s - request: %v", subscribeTestPrefix, err)
			}
			var ack ContainerAck
			if err := json.Unmarshal(reply.Data, &ack); err != nil {
				t.Fatalf("%s - decode ack: %v", subscribeTestPrefix, err)
			}
			if ack.OK != tt.wantOK {
				t.Errorf("%s - ack = %+v, want ok=%v", subscribeTestPrefix, ack, tt.wantOK)
			}
			if got := s.Pipe().Containers().IsDestroying("view-1"); got != tt.wantDestroying {
				t.Errorf("%s - IsDestroying = %v, want %v", subscribeTestPrefix, got, tt.wantDestroying)
			}
		})
	}
}

func TestSubscribe_PendingCallDoesNotHoldUpOthers(t *testing.T) {
	nc, cleanup := startTestServer(t, 14238)
	defer cleanup()

	s := testServer(t, NewServerParams{Conn: nc})
	release := make(chan struct{})
	s.reg.Register(method.New[struct{}, struct{}]("test.slow", func(_ context.Context, _ *method.Invocation, _ struct{}, done func(method.Status, *struct{})) {
		go func() {
			<-release
			done(method.OK(), nil)
		}()
	}))
	s.reg.Register(method.New[struct{}, struct{}]("test.fast", func(_ context.Context, _ *method.Invocation, _ struct{}, done func(method.Status, *struct{})) {
		done(method.OK(), nil)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Subscribe(ctx); err != nil {
		t.Fatalf("%s - Subscribe: %v", subscribeTestPrefix, err)
	}
	c := client.NewClient(client.NewClientParams{Transport: client.NewNATSTransport(nc, "")})

	slow := make(chan client.Response, 1)
	go func() { slow <- c.Call(ctx, "test.slow", map[string]interface{}{}) }()
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	fast := c.Call(ctx, "test.fast", map[string]interface{}{})
	if !fast.OK() {
		t.Fatalf("%s - fast call = %+v", subscribeTestPrefix, fast)
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("%s - fast call took %v behind a pending call", subscribeTestPrefix, took)
	}
	select {
	case <-slow:
		t.Errorf("%s - slow call completed before it was released", subscribeTestPrefix)
	default:
	}

	close(release)
	select {
	case got := <-slow:
		if !got.OK() {
			t.Errorf("%s - slow call = %+v", subscribeTestPrefix, got)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("%s - slow call never completed", subscribeTestPrefix)
	}
}
