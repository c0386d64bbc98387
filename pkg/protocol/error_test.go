package protocol

import (
	"strings"
	"testing"
)

func TestErrorMessageEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		em   *ErrorMessage
	}{
		{"non_fatal", NewError(CodeUnknownRoot, "no such root")},
		{"fatal", NewFatalError(CodeSessionExpired, "session expired")},
		{"empty_message", NewError(CodeUnknown, "")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DecodeErrorMessage(EncodeErrorMessage(tc.em))
			if err != nil {
				t.Fatalf("DecodeErrorMessage: %v", err)
			}
			if out.Code != tc.em.Code || out.Message != tc.em.Message || out.Fatal != tc.em.Fatal {
				t.Errorf("message = %+v, want %+v", out, tc.em)
			}
		})
	}
}

func TestErrorMessageError(t *testing.T) {
	em := NewError(CodeRenderFailed, "memo cycle")
	if got := em.Error(); !strings.Contains(got, "RenderFailed") || !strings.Contains(got, "memo cycle") {
		t.Errorf("Error() = %q", got)
	}

	fatal := NewFatalError(CodeServerError, "boom")
	if got := fatal.Error(); !strings.HasPrefix(got, "fatal: ") {
		t.Errorf("Error() = %q, want fatal prefix", got)
	}
	if !fatal.IsFatal() {
		t.Error("IsFatal() = false, want true")
	}
}

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{CodeUnknown, "Unknown"},
		{CodeInvalidFrame, "InvalidFrame"},
		{CodeInvalidRequest, "InvalidRequest"},
		{CodeUnknownRoot, "UnknownRoot"},
		{CodeUnknownSignal, "UnknownSignal"},
		{CodeRenderFailed, "RenderFailed"},
		{CodeSessionExpired, "SessionExpired"},
		{CodeRateLimited, "RateLimited"},
		{CodeServerError, "ServerError"},
		{ErrorCode(0xBEEF), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.code.String(); got != tc.want {
			t.Errorf("ErrorCode(%#x).String() = %q, want %q", uint16(tc.code), got, tc.want)
		}
	}
}
