package protocol

// HandshakeStatus is the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeSessionExpired  HandshakeStatus = 0x02
	HandshakeServerBusy      HandshakeStatus = 0x03
	HandshakeInvalidFormat   HandshakeStatus = 0x04 // Malformed handshake message
	HandshakeInternalError   HandshakeStatus = 0x05 // Server error
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeSessionExpired:
		return "SessionExpired"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion is a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the protocol version this package speaks.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// ClientHello is the first frame a client sends after the transport
// connects. A non-empty SessionID with LastSeq asks the server to resume
// the session by replaying patches after LastSeq.
type ClientHello struct {
	Version   ProtocolVersion
	SessionID string // existing session ID, empty for a fresh session
	LastSeq   uint64 // last commit sequence the client applied
}

// ServerHello is the server's response to ClientHello. On a resumed
// session NextSeq is the sequence the next patch batch will carry; a
// client holding an older tree should expect replayed batches first.
type ServerHello struct {
	Status     HandshakeStatus
	SessionID  string
	NextSeq    uint64
	ServerTime uint64 // Unix milliseconds
	Flags      uint16
}

// Server capability flags.
const (
	// ServerFlagJournal means the server retains a patch journal and can
	// replay missed batches on resume. Without it every reconnect starts
	// from a full remount.
	ServerFlagJournal uint16 = 0x0001
)

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	EncodeClientHelloTo(e, ch)
	return e.Bytes()
}

// EncodeClientHelloTo encodes a ClientHello using the provided encoder.
func EncodeClientHelloTo(e *Encoder, ch *ClientHello) {
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.SessionID)
	e.WriteUvarint(ch.LastSeq)
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	return DecodeClientHelloFrom(NewDecoder(data))
}

// DecodeClientHelloFrom decodes a ClientHello from a decoder.
func DecodeClientHelloFrom(d *Decoder) (*ClientHello, error) {
	ch := &ClientHello{}
	var err error

	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ch.Version = ProtocolVersion{Major: major, Minor: minor}

	ch.SessionID, err = d.ReadString()
	if err != nil {
		return nil, err
	}

	ch.LastSeq, err = d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	EncodeServerHelloTo(e, sh)
	return e.Bytes()
}

// EncodeServerHelloTo encodes a ServerHello using the provided encoder.
func EncodeServerHelloTo(e *Encoder, sh *ServerHello) {
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUvarint(sh.NextSeq)
	e.WriteUint64(sh.ServerTime)
	e.WriteUint16(sh.Flags)
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	return DecodeServerHelloFrom(NewDecoder(data))
}

// DecodeServerHelloFrom decodes a ServerHello from a decoder.
func DecodeServerHelloFrom(d *Decoder) (*ServerHello, error) {
	sh := &ServerHello{}
	var err error

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HandshakeStatus(status)

	sh.SessionID, err = d.ReadString()
	if err != nil {
		return nil, err
	}

	sh.NextSeq, err = d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	sh.ServerTime, err = d.ReadUint64()
	if err != nil {
		return nil, err
	}

	sh.Flags, err = d.ReadUint16()
	if err != nil {
		return nil, err
	}

	return sh, nil
}

// NewClientHello creates a ClientHello for a fresh session at the
// current protocol version.
func NewClientHello() *ClientHello {
	return &ClientHello{Version: CurrentVersion}
}

// NewServerHello creates a successful ServerHello.
func NewServerHello(sessionID string, nextSeq uint64, serverTime uint64) *ServerHello {
	return &ServerHello{
		Status:     HandshakeOK,
		SessionID:  sessionID,
		NextSeq:    nextSeq,
		ServerTime: serverTime,
	}
}

// NewServerHelloError creates a ServerHello carrying an error status.
func NewServerHelloError(status HandshakeStatus) *ServerHello {
	return &ServerHello{Status: status}
}
