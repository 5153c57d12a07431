package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ArtifactStore persists finished call audio and returns a reference that
// history records can carry.
type ArtifactStore interface {
	SaveCallAudio(caller, callee string, startedAt time.Time, f Format, samples []int16) (string, error)
}

// ArtifactName builds the canonical file name for a call recording.
func ArtifactName(caller, callee string, startedAt time.Time) string {
	return fmt.Sprintf("call_%s_%s_%d.wav", caller, callee, startedAt.Unix())
}

// FSArtifactStore writes WAV files under Dir, creating it on first use.
type FSArtifactStore struct {
	Dir string
}

func (s *FSArtifactStore) SaveCallAudio(caller, callee string, startedAt time.Time, f Format, samples []int16) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(s.Dir, ArtifactName(caller, callee, startedAt))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if err := EncodeWAV(file, f, samples); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return path, nil
}

// SavedArtifact is one recording captured by MemoryArtifactStore.
type SavedArtifact struct {
	Ref     string
	Caller  string
	Callee  string
	Samples []int16
}

// MemoryArtifactStore keeps recordings in memory for tests.
type MemoryArtifactStore struct {
	mu    sync.Mutex
	saved []SavedArtifact
}

func (s *MemoryArtifactStore) SaveCallAudio(caller, callee string, startedAt time.Time, _ Format, samples []int16) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := filepath.Join("calls", ArtifactName(caller, callee, startedAt))
	s.saved = append(s.saved, SavedArtifact{Ref: ref, Caller: caller, Callee: callee, Samples: samples})
	return ref, nil
}

func (s *MemoryArtifactStore) Saved() []SavedArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SavedArtifact, len(s.saved))
	copy(out, s.saved)
	return out
}
