package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	ok := NewEnvelope(map[string]string{"status": "assigned_to_delivery"}, nil, "Delivery partner assigned")
	if !ok.Success || ok.Error != "" || ok.Kind != "" || ok.Message != "Delivery partner assigned" {
		t.Fatalf("unexpected success envelope: %+v", ok)
	}

	wrapped := fmt.Errorf("handler: %w", newError(KindAlreadyAssigned, "order already has an active delivery assignment"))
	fail := NewEnvelope(nil, wrapped, "ignored")
	if fail.Success || fail.Kind != KindAlreadyAssigned || fail.Error != "order already has an active delivery assignment" || fail.Message != "" {
		t.Fatalf("unexpected failure envelope: %+v", fail)
	}

	raw := NewEnvelope(nil, errors.New("disk on fire"), "")
	if raw.Kind != KindInternal || raw.Error != "internal error" {
		t.Fatalf("foreign errors must not leak: %+v", raw)
	}
}

func TestEnvelope_JSONShape(t *testing.T) {
	b, err := json.Marshal(NewEnvelope(nil, newError(KindInvalidOTP, msgInvalidCode), ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["success"] != false || m["error"] != msgInvalidCode || m["kind"] != "invalid_otp" {
		t.Fatalf("unexpected json: %s", b)
	}
	if _, ok := m["data"]; ok {
		t.Fatalf("data should be omitted on failure: %s", b)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != "" {
		t.Fatalf("nil error has no kind")
	}
	e := wrapError(KindTransient, "store busy", errors.New("locked"))
	if KindOf(fmt.Errorf("outer: %w", e)) != KindTransient {
		t.Fatalf("kind lost through wrapping")
	}
}
