package protocol

// ErrorCode identifies the type of error carried by an Error frame.
type ErrorCode uint16

const (
	CodeUnknown        ErrorCode = 0x0000
	CodeInvalidFrame   ErrorCode = 0x0001 // malformed frame
	CodeInvalidRequest ErrorCode = 0x0002 // malformed schedule or invalidate payload
	CodeUnknownRoot    ErrorCode = 0x0003 // schedule names a root the session does not hold
	CodeUnknownSignal  ErrorCode = 0x0004 // invalidate names a source the session does not hold
	CodeRenderFailed   ErrorCode = 0x0005 // a render pass surfaced an error
	CodeSessionExpired ErrorCode = 0x0006
	CodeRateLimited    ErrorCode = 0x0007
	CodeServerError    ErrorCode = 0x0100 // internal server error
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidFrame:
		return "InvalidFrame"
	case CodeInvalidRequest:
		return "InvalidRequest"
	case CodeUnknownRoot:
		return "UnknownRoot"
	case CodeUnknownSignal:
		return "UnknownSignal"
	case CodeRenderFailed:
		return "RenderFailed"
	case CodeSessionExpired:
		return "SessionExpired"
	case CodeRateLimited:
		return "RateLimited"
	case CodeServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// ErrorMessage is the payload of an Error frame.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool // if true the connection is about to close
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	EncodeErrorMessageTo(e, em)
	return e.Bytes()
}

// EncodeErrorMessageTo encodes an ErrorMessage using the provided encoder.
func EncodeErrorMessageTo(e *Encoder, em *ErrorMessage) {
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	return DecodeErrorMessageFrom(NewDecoder(data))
}

// DecodeErrorMessageFrom decodes an ErrorMessage from a decoder.
func DecodeErrorMessageFrom(d *Decoder) (*ErrorMessage, error) {
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	return &ErrorMessage{
		Code:    ErrorCode(code),
		Message: message,
		Fatal:   fatal,
	}, nil
}

// NewError creates a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError creates a fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}

// IsFatal reports whether this error closes the connection.
func (em *ErrorMessage) IsFatal() bool {
	return em.Fatal
}
