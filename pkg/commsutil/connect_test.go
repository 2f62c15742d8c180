package commsutil

import (
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
)

const connectTestPrefix = "commsutil:connect_test"

func TestConnect_InvalidURL(t *testing.T) {
	nc, err := Connect(ConnectParams{URL: "invalid://not-a-nats-server", Name: "test-client", Timeout: time.Second})
	if err == nil {
		if nc != nil {
			nc.Close()
		}
		t.Fatalf("%s - expected error for invalid URL", connectTestPrefix)
	}
	if nc != nil {
		t.Errorf("%s - expected nil connection on error", connectTestPrefix)
	}
}

func TestConnect_EmbeddedServer(t *testing.T) {
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: 14234, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", connectTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", connectTestPrefix)
	}
	defer func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}()

	nc, err := Connect(ConnectParams{URL: ns.ClientURL()})
	if err != nil {
		t.Fatalf("%s - Connect failed: %v", connectTestPrefix, err)
	}
	defer nc.Close()

	if !nc.IsConnected() {
		t.Errorf("%s - expected connected client", connectTestPrefix)
	}
	if nc.Opts.Name != "method-pipe" {
		t.Errorf("%s - default name = %q, want method-pipe", connectTestPrefix, nc.Opts.Name)
	}
}

func TestConnectParams_Defaults(t *testing.T) {
	p := ConnectParams{}
	p.applyDefaults()
	if p.Timeout != 10*time.Second || p.ReconnectWait != 2*time.Second || p.MaxReconnects != 60 {
		t.Errorf("%s - defaults = %+v", connectTestPrefix, p)
	}
	q := ConnectParams{MaxReconnects: -1}
	q.applyDefaults()
	if q.MaxReconnects != -1 {
		t.Errorf("%s - explicit MaxReconnects should be kept, got %d", connectTestPrefix, q.MaxReconnects)
	}
}
