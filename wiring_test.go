package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"handosc/blemanager"
	"handosc/bridge"
	"handosc/config"
	"handosc/handtrack"
	"handosc/oscmanager"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildProviderOSC(t *testing.T) {
	cfg := config.Default().Source
	p, runners, err := buildProvider(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*handtrack.OSCProvider); !ok {
		t.Errorf("provider is %T", p)
	}
	if len(runners) != 1 {
		t.Errorf("want the listener as runner, got %d", len(runners))
	}
}

func TestBuildProviderReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.jsonl")
	body := `{"hands":[{"chirality":"left","direction":{"x":0,"y":1,"z":0}}]}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.SourceConfig{Kind: config.SourceReplay, ReplayPath: path}
	p, runners, err := buildProvider(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(runners) != 0 {
		t.Errorf("replay needs no runner")
	}
	snap := p.CurrentSnapshot()
	if len(snap.Hands) != 1 || snap.Hands[0].Chirality != handtrack.Left {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestBuildProviderErrors(t *testing.T) {
	if _, _, err := buildProvider(config.SourceConfig{Kind: config.SourceReplay, ReplayPath: "/does/not/exist"}, quietLogger()); err == nil {
		t.Error("missing recording should fail")
	}
	if _, _, err := buildProvider(config.SourceConfig{Kind: "leap"}, quietLogger()); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestStaticSourceThroughBridge(t *testing.T) {
	p, _, err := buildProvider(config.SourceConfig{Kind: config.SourceStatic}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	var got []bridge.Message
	b := bridge.New(p, bridge.SinkFunc(func(m bridge.Message) error {
		got = append(got, m)
		return nil
	}), quietLogger())
	if err := b.Tick(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Address != "/hand/right/direction" || got[0].Values[2] != -1 {
		t.Errorf("messages = %+v", got)
	}
}

func TestBuildSink(t *testing.T) {
	s, runners, err := buildSink(config.Default().Sink, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*oscmanager.Sender); !ok || len(runners) != 0 {
		t.Errorf("osc sink = %T, %d runners", s, len(runners))
	}

	s, runners, err = buildSink(config.SinkConfig{Kind: config.SinkBLE, BLEAddress: "AA:BB:CC:DD:EE:FF"}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*blemanager.Sink); !ok || len(runners) != 1 {
		t.Errorf("ble sink = %T, %d runners", s, len(runners))
	}

	if _, _, err := buildSink(config.SinkConfig{Kind: "midi"}, quietLogger()); err == nil {
		t.Error("unknown sink should fail")
	}
}
