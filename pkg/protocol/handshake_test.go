package protocol

import (
	"reflect"
	"testing"
)

func TestClientHelloEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		hello *ClientHello
	}{
		{"fresh", NewClientHello()},
		{
			"resume",
			&ClientHello{
				Version:   CurrentVersion,
				SessionID: "sess-01HWXYZ",
				LastSeq:   512,
			},
		},
		{
			"old_version",
			&ClientHello{Version: ProtocolVersion{Major: 0, Minor: 9}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DecodeClientHello(EncodeClientHello(tc.hello))
			if err != nil {
				t.Fatalf("DecodeClientHello: %v", err)
			}
			if !reflect.DeepEqual(out, tc.hello) {
				t.Errorf("hello = %+v, want %+v", out, tc.hello)
			}
		})
	}
}

func TestServerHelloEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		hello *ServerHello
	}{
		{"ok", NewServerHello("sess-1", 12, 1724500000000)},
		{"error", NewServerHelloError(HandshakeVersionMismatch)},
		{
			"with_journal",
			&ServerHello{
				Status:     HandshakeOK,
				SessionID:  "sess-2",
				NextSeq:    1,
				ServerTime: 1724500000001,
				Flags:      ServerFlagJournal,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DecodeServerHello(EncodeServerHello(tc.hello))
			if err != nil {
				t.Fatalf("DecodeServerHello: %v", err)
			}
			if !reflect.DeepEqual(out, tc.hello) {
				t.Errorf("hello = %+v, want %+v", out, tc.hello)
			}
		})
	}
}

func TestHandshakeTruncated(t *testing.T) {
	data := EncodeClientHello(&ClientHello{
		Version:   CurrentVersion,
		SessionID: "sess",
		LastSeq:   10,
	})

	for cut := 0; cut < len(data); cut++ {
		if _, err := DecodeClientHello(data[:cut]); err == nil {
			t.Errorf("DecodeClientHello succeeded on %d of %d bytes", cut, len(data))
		}
	}
}

func TestHandshakeStatusString(t *testing.T) {
	tests := []struct {
		hs   HandshakeStatus
		want string
	}{
		{HandshakeOK, "OK"},
		{HandshakeVersionMismatch, "VersionMismatch"},
		{HandshakeSessionExpired, "SessionExpired"},
		{HandshakeServerBusy, "ServerBusy"},
		{HandshakeInvalidFormat, "InvalidFormat"},
		{HandshakeInternalError, "InternalError"},
		{HandshakeStatus(0x7F), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.hs.String(); got != tc.want {
			t.Errorf("HandshakeStatus(%d).String() = %q, want %q", tc.hs, got, tc.want)
		}
	}
}
