package main

import (
	"testing"
	"time"

	"github.com/medoshield/chatassist/internal/config"
)

func TestServerWriteTimeout(t *testing.T) {
	tests := []struct {
		name    string
		request time.Duration
		remote  time.Duration
		want    time.Duration
	}{
		{"client timeout only", 30 * time.Second, 0, 45 * time.Second},
		{"engine bound shorter", 30 * time.Second, 5 * time.Second, 45 * time.Second},
		{"engine bound longer", 10 * time.Second, 60 * time.Second, 75 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				AI:      config.AIConfig{RequestTimeout: tt.request},
				Suggest: config.SuggestConfig{RemoteTimeout: tt.remote},
			}
			if got := serverWriteTimeout(cfg); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
