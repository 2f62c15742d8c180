package server

import (
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/method-pipe/pkg/commsutil"
)

// Container lifecycle actions carried on the container subject.
const (
	ContainerAttach     = "attach"
	ContainerDestroying = "destroying"
	ContainerDetach     = "detach"
)

// ContainerMessage tells the pipe about a host view. Calls scoped to a
// destroying container run in place instead of hopping to the main loop.
type ContainerMessage struct {
	Action      string `json:"action"`
	ContainerID string `json:"containerId"`
}

// ContainerAck is the reply to a ContainerMessage request.
type ContainerAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// applyContainer updates the pipe's container tracker.
func (s *Server) applyContainer(m ContainerMessage) error {
	if m.ContainerID == "" {
		return fmt.Errorf("containerId is required")
	}
	containers := s.pipe.Containers()
	switch m.Action {
	case ContainerAttach:
		containers.Attach(m.ContainerID)
	case ContainerDestroying:
		containers.MarkDestroying(m.ContainerID)
	case ContainerDetach:
		containers.Detach(m.ContainerID)
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
	slog.Debug(fmt.Sprintf("%s - container %s: %s", logPrefix, m.ContainerID, m.Action))
	return nil
}

func (s *Server) handleContainerMsg(msg *comms.Msg) {
	var m ContainerMessage
	ack := ContainerAck{OK: true}
	if err := commsutil.DecodePayload(msg.Data, &m); err != nil {
		ack = ContainerAck{Error: "Failed to decode container message"}
	} else if err := s.applyContainer(m); err != nil {
		ack = ContainerAck{Error: err.Error()}
	}
	if !ack.OK {
		slog.Warn(fmt.Sprintf("%s - container message rejected: %s", logPrefix, ack.Error))
	}
	if msg.Reply == "" {
		return
	}
	data, err := commsutil.EncodePayload(ack)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode container ack: %v", logPrefix, err))
		return
	}
	msg.Respond(data)
}
