package protocol

import "testing"

func TestScheduleRequestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		req  *ScheduleRequest
	}{
		{"root_default", &ScheduleRequest{Root: 1, Priority: 2}},
		{"deep_root", &ScheduleRequest{Root: 90000, Priority: 0}},
		{"urgent", &ScheduleRequest{Root: 3, Priority: 4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := DecodeScheduleRequest(EncodeScheduleRequest(tc.req))
			if err != nil {
				t.Fatalf("DecodeScheduleRequest: %v", err)
			}
			if out.Root != tc.req.Root || out.Priority != tc.req.Priority {
				t.Errorf("request = %+v, want %+v", out, tc.req)
			}
		})
	}
}

func TestInvalidateRequestEncodeDecode(t *testing.T) {
	out, err := DecodeInvalidateRequest(EncodeInvalidateRequest(&InvalidateRequest{Signal: 1234}))
	if err != nil {
		t.Fatalf("DecodeInvalidateRequest: %v", err)
	}
	if out.Signal != 1234 {
		t.Errorf("Signal = %d, want 1234", out.Signal)
	}
}

func TestRequestTruncated(t *testing.T) {
	if _, err := DecodeScheduleRequest([]byte{0x05}); err == nil {
		t.Error("DecodeScheduleRequest succeeded without priority byte")
	}
	if _, err := DecodeInvalidateRequest(nil); err == nil {
		t.Error("DecodeInvalidateRequest succeeded on empty input")
	}
}
