package llm

import (
	"testing"
	"time"
)

func TestConfigBudget(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{"defaults when unset", Config{}, 120 * time.Second},
		{"negative retries", Config{Timeout: 30 * time.Second, MaxRetries: -1}, 30 * time.Second},
		{"two retries", Config{Timeout: 120 * time.Second, MaxRetries: 2}, 363600 * time.Millisecond},
		// sleeps 1,2,4,8 then capped at 10, each +20%.
		{"capped backoff", Config{Timeout: 10 * time.Second, MaxRetries: 5}, 90 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Budget(); got != tc.want {
				t.Fatalf("budget: want=%s got=%s", tc.want, got)
			}
		})
	}
}
