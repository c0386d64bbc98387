package protocol

// Ack is sent by the client to acknowledge applied patch batches. The
// server uses LastSeq to release journal entries and Window for flow
// control: it stops sending batches once LastSeq trails the head of the
// stream by more than Window.
type Ack struct {
	LastSeq uint64 // last commit sequence the client applied
	Window  uint64 // how many further batches the client will accept
}

// DefaultWindow is the default receive window size.
const DefaultWindow = 100

// EncodeAck encodes an Ack to bytes.
func EncodeAck(ack *Ack) []byte {
	e := NewEncoder()
	EncodeAckTo(e, ack)
	return e.Bytes()
}

// EncodeAckTo encodes an Ack using the provided encoder.
func EncodeAckTo(e *Encoder, ack *Ack) {
	e.WriteUvarint(ack.LastSeq)
	e.WriteUvarint(ack.Window)
}

// DecodeAck decodes an Ack from bytes.
func DecodeAck(data []byte) (*Ack, error) {
	return DecodeAckFrom(NewDecoder(data))
}

// DecodeAckFrom decodes an Ack from a decoder.
func DecodeAckFrom(d *Decoder) (*Ack, error) {
	lastSeq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	window, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &Ack{LastSeq: lastSeq, Window: window}, nil
}

// NewAck creates an Ack with the given sequence and the default window.
func NewAck(lastSeq uint64) *Ack {
	return &Ack{LastSeq: lastSeq, Window: DefaultWindow}
}
