package protocol

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing          ControlType = 0x01 // liveness probe, either direction
	ControlPong          ControlType = 0x02 // response to ping
	ControlResyncRequest ControlType = 0x10 // client reports a sequence gap
	ControlResyncReset   ControlType = 0x11 // server orders a fresh start
	ControlClose         ControlType = 0x20 // session close
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlResyncRequest:
		return "ResyncRequest"
	case ControlResyncReset:
		return "ResyncReset"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason indicates why a session is being closed.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00
	CloseGoingAway      CloseReason = 0x01
	CloseSessionExpired CloseReason = 0x02
	CloseServerShutdown CloseReason = 0x03
	CloseError          CloseReason = 0x04
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseSessionExpired:
		return "SessionExpired"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// PingPong is the payload for Ping and Pong messages.
type PingPong struct {
	Timestamp uint64 // Unix milliseconds
}

// ResyncRequest is sent by the client when it receives a batch whose
// sequence is not LastSeq+1. The server answers either by replaying the
// journal as Patches frames flagged FlagResync, or with a ResyncReset
// when the journal no longer covers the gap.
type ResyncRequest struct {
	LastSeq uint64
}

// ResyncReset orders the client to drop its tree and session state. The
// server remounts and the rebuilt tree arrives as a normal insert batch
// carrying NextSeq.
type ResyncReset struct {
	NextSeq uint64
}

// CloseMessage is sent when closing a session.
type CloseMessage struct {
	Reason  CloseReason
	Message string
}

// EncodeControl encodes a control message to bytes.
func EncodeControl(ct ControlType, payload any) []byte {
	e := NewEncoder()
	EncodeControlTo(e, ct, payload)
	return e.Bytes()
}

// EncodeControlTo encodes a control message using the provided encoder.
// A payload of the wrong type encodes as the zero payload.
func EncodeControlTo(e *Encoder, ct ControlType, payload any) {
	e.WriteByte(byte(ct))

	switch ct {
	case ControlPing, ControlPong:
		if pp, ok := payload.(*PingPong); ok {
			e.WriteUint64(pp.Timestamp)
		} else {
			e.WriteUint64(0)
		}

	case ControlResyncRequest:
		if rr, ok := payload.(*ResyncRequest); ok {
			e.WriteUvarint(rr.LastSeq)
		} else {
			e.WriteUvarint(0)
		}

	case ControlResyncReset:
		if rr, ok := payload.(*ResyncReset); ok {
			e.WriteUvarint(rr.NextSeq)
		} else {
			e.WriteUvarint(0)
		}

	case ControlClose:
		if cm, ok := payload.(*CloseMessage); ok {
			e.WriteByte(byte(cm.Reason))
			e.WriteString(cm.Message)
		} else {
			e.WriteByte(byte(CloseNormal))
			e.WriteString("")
		}
	}
}

// DecodeControl decodes a control message from bytes. It returns the
// control type and the decoded payload.
func DecodeControl(data []byte) (ControlType, any, error) {
	return DecodeControlFrom(NewDecoder(data))
}

// DecodeControlFrom decodes a control message from a decoder. Unknown
// control types decode with a nil payload so older peers can ignore
// additions.
func DecodeControlFrom(d *Decoder) (ControlType, any, error) {
	typeByte, err := d.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	ct := ControlType(typeByte)

	switch ct {
	case ControlPing, ControlPong:
		ts, err := d.ReadUint64()
		if err != nil {
			return ct, nil, err
		}
		return ct, &PingPong{Timestamp: ts}, nil

	case ControlResyncRequest:
		lastSeq, err := d.ReadUvarint()
		if err != nil {
			return ct, nil, err
		}
		return ct, &ResyncRequest{LastSeq: lastSeq}, nil

	case ControlResyncReset:
		nextSeq, err := d.ReadUvarint()
		if err != nil {
			return ct, nil, err
		}
		return ct, &ResyncReset{NextSeq: nextSeq}, nil

	case ControlClose:
		reason, err := d.ReadByte()
		if err != nil {
			return ct, nil, err
		}
		message, err := d.ReadString()
		if err != nil {
			return ct, nil, err
		}
		return ct, &CloseMessage{Reason: CloseReason(reason), Message: message}, nil

	default:
		return ct, nil, nil
	}
}

// NewPing creates a Ping message.
func NewPing(timestamp uint64) (ControlType, *PingPong) {
	return ControlPing, &PingPong{Timestamp: timestamp}
}

// NewPong creates a Pong message.
func NewPong(timestamp uint64) (ControlType, *PingPong) {
	return ControlPong, &PingPong{Timestamp: timestamp}
}

// NewResyncRequest creates a ResyncRequest message.
func NewResyncRequest(lastSeq uint64) (ControlType, *ResyncRequest) {
	return ControlResyncRequest, &ResyncRequest{LastSeq: lastSeq}
}

// NewResyncReset creates a ResyncReset message.
func NewResyncReset(nextSeq uint64) (ControlType, *ResyncReset) {
	return ControlResyncReset, &ResyncReset{NextSeq: nextSeq}
}

// NewClose creates a Close message.
func NewClose(reason CloseReason, message string) (ControlType, *CloseMessage) {
	return ControlClose, &CloseMessage{Reason: reason, Message: message}
}
