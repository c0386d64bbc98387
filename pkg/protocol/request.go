package protocol

// ScheduleRequest asks the runtime to render the subtree rooted at a
// fiber. Root 0 addresses every mounted root. Priority is the numeric
// scheduling priority; the receiver validates it against the priorities
// it knows.
type ScheduleRequest struct {
	Root     uint64
	Priority uint8
}

// EncodeScheduleRequest encodes a ScheduleRequest to bytes.
func EncodeScheduleRequest(sr *ScheduleRequest) []byte {
	e := NewEncoder()
	EncodeScheduleRequestTo(e, sr)
	return e.Bytes()
}

// EncodeScheduleRequestTo encodes a ScheduleRequest using the provided encoder.
func EncodeScheduleRequestTo(e *Encoder, sr *ScheduleRequest) {
	e.WriteUvarint(sr.Root)
	e.WriteByte(sr.Priority)
}

// DecodeScheduleRequest decodes a ScheduleRequest from bytes.
func DecodeScheduleRequest(data []byte) (*ScheduleRequest, error) {
	return DecodeScheduleRequestFrom(NewDecoder(data))
}

// DecodeScheduleRequestFrom decodes a ScheduleRequest from a decoder.
func DecodeScheduleRequestFrom(d *Decoder) (*ScheduleRequest, error) {
	root, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	prio, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	return &ScheduleRequest{Root: root, Priority: prio}, nil
}

// InvalidateRequest marks one reactive source dirty, as if it had been
// written in place. Dependent fibers are queued the same way a local
// write would queue them.
type InvalidateRequest struct {
	Signal uint64
}

// EncodeInvalidateRequest encodes an InvalidateRequest to bytes.
func EncodeInvalidateRequest(ir *InvalidateRequest) []byte {
	e := NewEncoder()
	EncodeInvalidateRequestTo(e, ir)
	return e.Bytes()
}

// EncodeInvalidateRequestTo encodes an InvalidateRequest using the provided encoder.
func EncodeInvalidateRequestTo(e *Encoder, ir *InvalidateRequest) {
	e.WriteUvarint(ir.Signal)
}

// DecodeInvalidateRequest decodes an InvalidateRequest from bytes.
func DecodeInvalidateRequest(data []byte) (*InvalidateRequest, error) {
	return DecodeInvalidateRequestFrom(NewDecoder(data))
}

// DecodeInvalidateRequestFrom decodes an InvalidateRequest from a decoder.
func DecodeInvalidateRequestFrom(d *Decoder) (*InvalidateRequest, error) {
	signal, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &InvalidateRequest{Signal: signal}, nil
}
