package handtrack

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ReplayProvider plays back a recording one snapshot per call and loops
// when it reaches the end.
type ReplayProvider struct {
	mu     sync.Mutex
	frames []Snapshot
	next   int
}

// NewReplayProvider wraps already decoded frames.
func NewReplayProvider(frames []Snapshot) *ReplayProvider {
	return &ReplayProvider{frames: frames}
}

// LoadReplay reads a JSON Lines recording from path.
func LoadReplay(path string) (*ReplayProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	frames, err := ReadRecording(f)
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", path, err)
	}
	return NewReplayProvider(frames), nil
}

// ReadRecording decodes one snapshot per non-empty line.
func ReadRecording(r io.Reader) ([]Snapshot, error) {
	var frames []Snapshot
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(text), &snap); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, snap)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

// WriteRecording is the inverse of ReadRecording.
func WriteRecording(w io.Writer, frames []Snapshot) error {
	enc := json.NewEncoder(w)
	for i, f := range frames {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Len is the number of recorded frames.
func (p *ReplayProvider) Len() int {
	return len(p.frames)
}

func (p *ReplayProvider) CurrentSnapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) == 0 {
		return Snapshot{}
	}
	snap := p.frames[p.next]
	p.next = (p.next + 1) % len(p.frames)
	return snap
}
