package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoVersion,
		ErrWorldBusy,
		ErrWorldStopped,
		ErrBadRequest,
		ErrSleepDenied,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestNewError(t *testing.T) {
	e := NewError(ErrSleepDenied, "not here")
	if e.Type != TypeError || e.ProtocolVersion != Version || e.Code != ErrSleepDenied {
		t.Fatalf("error msg=%+v", e)
	}
}
