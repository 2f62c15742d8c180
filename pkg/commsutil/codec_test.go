package commsutil

import (
	"context"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

const codecTestPrefix = "commsutil:codec_test"

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{name: "simple map", input: map[string]string{"key": "value"}, want: `{"key":"value"}`},
		{name: "tagged struct", input: struct {
			Code int    `json:"code"`
			Msg  string `json:"msg,omitempty"`
		}{Code: 1}, want: `{"code":1}`},
		{name: "nil", input: nil, want: "null"},
		{name: "slice", input: []int{1, 2, 3}, want: "[1,2,3]"},
		{name: "channel is not serializable", input: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("%s - expected error but got nil", codecTestPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
			}
			if string(data) != tt.want {
				t.Errorf("%s - EncodePayload() = %q, want %q", codecTestPrefix, data, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	var envelope struct {
		ID     string                 `json:"id"`
		Params map[string]interface{} `json:"params"`
	}
	if err := DecodePayload([]byte(`{"id":"c1","params":{"key":"k"}}`), &envelope); err != nil {
		t.Fatalf("%s - unexpected error: %v", codecTestPrefix, err)
	}
	if envelope.ID != "c1" || envelope.Params["key"] != "k" {
		t.Errorf("%s - decoded = %+v", codecTestPrefix, envelope)
	}

	for _, bad := range []string{"", "{invalid}"} {
		var m map[string]string
		if err := DecodePayload([]byte(bad), &m); err == nil {
			t.Errorf("%s - expected error for %q", codecTestPrefix, bad)
		}
	}
}

func TestRequestJSON(t *testing.T) {
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: 14233, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", codecTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", codecTestPrefix)
	}
	defer func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}()

	nc, err := comms.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("%s - failed to connect: %v", codecTestPrefix, err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe("test.echo", func(msg *comms.Msg) {
		_ = msg.Respond(msg.Data)
	})
	if err != nil {
		t.Fatalf("%s - subscribe failed: %v", codecTestPrefix, err)
	}
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := RequestJSON(ctx, nc, "test.echo", map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("%s - RequestJSON failed: %v", codecTestPrefix, err)
	}
	if string(reply) != `{"hello":"world"}` {
		t.Errorf("%s - reply = %s", codecTestPrefix, reply)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShort()
	if _, err := RequestJSON(short, nc, "test.nobody", map[string]string{}); err == nil {
		t.Errorf("%s - expected error for unanswered subject", codecTestPrefix)
	}

	if _, err := RequestJSON(ctx, nil, "test.echo", nil); err == nil {
		t.Errorf("%s - expected error for nil connection", codecTestPrefix)
	}
}
