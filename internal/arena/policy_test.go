package arena

import "testing"

func TestChannelPolicy_Allows(t *testing.T) {
	policy, err := NewChannelPolicy([]string{"guild-*/debate-*", "lobby", "events/**"})
	if err != nil {
		t.Fatalf("NewChannelPolicy() error = %v", err)
	}

	tests := []struct {
		channel string
		want    bool
	}{
		{"guild-1/debate-main", true},
		{"guild-abc/debate-", true},
		{"guild-1/general", false},
		{"guild-1/sub/debate-x", false},
		{"lobby", true},
		{"lobby-2", false},
		{"events/2024/finals", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			if got := policy.Allows(tt.channel); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestChannelPolicy_EmptyAllowsAll(t *testing.T) {
	policy, err := NewChannelPolicy(nil)
	if err != nil {
		t.Fatalf("NewChannelPolicy() error = %v", err)
	}
	if !policy.Allows("anything/at/all") {
		t.Error("empty policy rejected a channel")
	}

	var nilPolicy *ChannelPolicy
	if !nilPolicy.Allows("x") {
		t.Error("nil policy rejected a channel")
	}
	if nilPolicy.Patterns() != nil {
		t.Error("nil policy returned patterns")
	}
}

func TestChannelPolicy_InvalidPattern(t *testing.T) {
	if _, err := NewChannelPolicy([]string{"debate-[a"}); err == nil {
		t.Error("NewChannelPolicy() error = nil for unterminated range")
	}
}

func TestChannelPolicy_PatternsCopy(t *testing.T) {
	policy, _ := NewChannelPolicy([]string{"a", "b"})
	got := policy.Patterns()
	got[0] = "mutated"
	if policy.Patterns()[0] != "a" {
		t.Error("Patterns() exposed internal slice")
	}
}
