package join

import "testing"

func TestMoleculeValue_IsBlocking(t *testing.T) {
	tests := []struct {
		name string
		mv   MoleculeValue
		want bool
	}{
		{"non-blocking", nonBlockingValue(42), false},
		{"blocking", blockingValue("x", newReplyChannel()), true},
		{"zero value", MoleculeValue{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mv.isBlocking(); got != tt.want {
				t.Errorf("isBlocking() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNonBlockingValue_CarriesNoReply(t *testing.T) {
	mv := nonBlockingValue(7)
	if mv.reply != nil {
		t.Errorf("expected nil reply on non-blocking value, got %v", mv.reply)
	}
	if mv.value != 7 {
		t.Errorf("expected value 7, got %v", mv.value)
	}
}

func TestBlockingValue_CarriesReply(t *testing.T) {
	rc := newReplyChannel()
	mv := blockingValue("payload", rc)
	if mv.reply != rc {
		t.Error("expected reply channel to be preserved")
	}
	if mv.value != "payload" {
		t.Errorf("expected value 'payload', got %v", mv.value)
	}
}
