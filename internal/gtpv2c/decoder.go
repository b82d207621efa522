package gtpv2c

import (
	"fmt"

	"github.com/wmnsk/go-gtp/gtpv2/message"
)

// Decode parses raw bytes received from the peer into a GTPv2-C message.
// Outbound messages are built by the encoders in this package; go-gtp is
// only used for the inbound direction.
func Decode(data []byte) (message.Message, error) {
	msg, err := message.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTPv2-C message: %w", err)
	}
	return msg, nil
}

// IsTriggeredResponse returns true for message types sent by a peer in
// answer to a tracked request.
func IsTriggeredResponse(msg message.Message) bool {
	switch msg.MessageType() {
	case message.MsgTypeEchoResponse,
		message.MsgTypeCreateSessionResponse,
		message.MsgTypeCreateBearerResponse:
		return true
	default:
		return false
	}
}
