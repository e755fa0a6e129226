// Package voice holds the reference sample that anchors speech-synthesis timbre.
package voice

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Reference is an immutable reference sample plus its transcript.
type Reference struct {
	Audio      []byte
	MIMEType   string
	Transcript string

	dataURI string
}

// NewReference builds a reference with its data URI encoded up front.
func NewReference(audio []byte, mimeType, transcript string) Reference {
	r := Reference{Audio: audio, MIMEType: mimeType, Transcript: transcript}
	r.dataURI = encodeDataURI(r.MIMEType, r.Audio)
	return r
}

// DataURI returns the sample as a base64 data URI, the form providers accept in
// speech reference payloads.
func (r Reference) DataURI() string {
	if r.dataURI != "" {
		return r.dataURI
	}
	return encodeDataURI(r.MIMEType, r.Audio)
}

func encodeDataURI(mimeType string, audio []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(audio)
}

// Store serves the reference sample loaded at startup. It is read-only and
// safe for concurrent use.
type Store struct {
	ref Reference
}

// Load reads the reference sample once. Any failure here must stop startup:
// speech synthesis cannot recover its prerequisite later.
func Load(path, transcript string) (*Store, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("reference transcript is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference audio %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("reference audio %s is empty", path)
	}

	s := &Store{ref: NewReference(data, mimeType(path), transcript)}

	slog.Info("reference voice loaded", "path", path, "bytes", len(data), "mime", s.ref.MIMEType)
	return s, nil
}

// Get returns the loaded reference.
func (s *Store) Get() Reference {
	return s.ref
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
