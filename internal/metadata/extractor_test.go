package metadata_test

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"vibrato/internal/config"
	"vibrato/internal/metadata"
)

func newTestExtractor() *metadata.Extractor {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return metadata.NewExtractor([]string{".mp3", ".flac", ".wav", ".m4a"}, logger)
}

func TestIsSupported(t *testing.T) {
	e := newTestExtractor()

	cases := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"SONG.MP3", true},
		{"album/track.flac", true},
		{"sound.wav", true},
		{"clip.m4a", true},
		{"clip.ogg", false},
		{"notes.txt", false},
		{"noext", false},
	}

	for _, tc := range cases {
		if got := e.IsSupported(tc.path); got != tc.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestExtractFallsBackOnUnreadableTags(t *testing.T) {
	e := newTestExtractor()

	dir := t.TempDir()
	path := filepath.Join(dir, "my favorite song.mp3")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	track := e.Extract(path)
	if track.Filename != path {
		t.Errorf("Expected filename %q, got %q", path, track.Filename)
	}
	if track.Title != nil {
		t.Errorf("Expected nil title for untagged file, got %v", *track.Title)
	}
	if track.DurationSeconds != nil {
		t.Error("Expected nil duration for unreadable file")
	}
	if track.DisplayTitle() != "my favorite song" {
		t.Errorf("Expected filename-stem display title, got %q", track.DisplayTitle())
	}
}

func TestProbeDurationUnsupported(t *testing.T) {
	e := newTestExtractor()

	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.mp3")
	os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0644)

	if d := e.ProbeDuration(path); d != nil {
		t.Errorf("Expected nil duration for garbage data, got %d", *d)
	}
	if d := e.ProbeDuration(filepath.Join(dir, "missing.mp3")); d != nil {
		t.Error("Expected nil duration for missing file")
	}
}

// atom builds one MP4 box: 4-byte big-endian size, 4-byte type, payload.
func atom(name string, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8+len(payload)))
	copy(buf[4:8], name)
	copy(buf[8:], payload)
	return buf
}

// mvhdV0 encodes a version-0 mvhd payload down to the duration field, which
// is all the probe reads.
func mvhdV0(timescale, duration uint32) []byte {
	payload := make([]byte, 20)
	// version+flags, creation and modification times stay zero.
	binary.BigEndian.PutUint32(payload[12:16], timescale)
	binary.BigEndian.PutUint32(payload[16:20], duration)
	return payload
}

func mvhdV1(timescale uint32, duration uint64) []byte {
	payload := make([]byte, 32)
	payload[0] = 1
	binary.BigEndian.PutUint32(payload[20:24], timescale)
	binary.BigEndian.PutUint64(payload[24:32], duration)
	return payload
}

func writeM4A(t *testing.T, dir string, mvhd []byte) string {
	t.Helper()
	path := filepath.Join(dir, "clip.m4a")
	data := append(atom("ftyp", []byte("M4A 0000")), atom("moov", atom("mvhd", mvhd))...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write m4a fixture: %v", err)
	}
	return path
}

func TestProbeDurationM4A(t *testing.T) {
	e := newTestExtractor()

	t.Run("DefaultAllowlistIncludesM4A", func(t *testing.T) {
		formats := config.DefaultConfig().Library.SupportedFormats
		def := metadata.NewExtractor(formats, logrus.New())
		if !def.IsSupported("song.m4a") {
			t.Fatal("Expected .m4a on the default allowlist")
		}
	})

	t.Run("Version0", func(t *testing.T) {
		// 241500 units at timescale 1000 is 241.5s, rounding to 242.
		path := writeM4A(t, t.TempDir(), mvhdV0(1000, 241500))
		d := e.ProbeDuration(path)
		if d == nil {
			t.Fatal("Expected a duration for an allowlisted m4a file")
		}
		if *d != 242 {
			t.Errorf("Expected 242 seconds, got %d", *d)
		}
	})

	t.Run("Version1", func(t *testing.T) {
		path := writeM4A(t, t.TempDir(), mvhdV1(600, 72000))
		d := e.ProbeDuration(path)
		if d == nil {
			t.Fatal("Expected a duration from a version-1 mvhd")
		}
		if *d != 120 {
			t.Errorf("Expected 120 seconds, got %d", *d)
		}
	})

	t.Run("ZeroTimescaleRejected", func(t *testing.T) {
		path := writeM4A(t, t.TempDir(), mvhdV0(0, 1000))
		if d := e.ProbeDuration(path); d != nil {
			t.Errorf("Expected nil for zero timescale, got %d", *d)
		}
	})

	t.Run("MissingMoovRejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "truncated.m4a")
		os.WriteFile(path, atom("ftyp", []byte("M4A 0000")), 0644)
		if d := e.ProbeDuration(path); d != nil {
			t.Errorf("Expected nil without a moov atom, got %d", *d)
		}
	})
}

func TestFormatDuration(t *testing.T) {
	secs := func(n int) *int { return &n }

	cases := []struct {
		in   *int
		want string
	}{
		{nil, "?:??"},
		{secs(0), "0:00"},
		{secs(59), "0:59"},
		{secs(60), "1:00"},
		{secs(241), "4:01"},
		{secs(3600), "60:00"},
	}

	for _, tc := range cases {
		if got := metadata.FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
