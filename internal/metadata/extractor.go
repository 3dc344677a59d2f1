package metadata

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vibrato/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor reads tag metadata and duration from audio files. Extraction
// failure is never fatal: an unreadable or untagged file still yields a
// usable record with nil tag fields.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a metadata extractor for the given extension
// allowlist (lowercase, dot-prefixed).
func NewExtractor(supportedFormats []string, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// IsSupported checks whether the file extension is on the allowlist.
func (e *Extractor) IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// Extract reads tags and duration for the file. All tag fields are optional;
// when nothing can be read the returned track has only its filename set and
// displays via the filename stem.
func (e *Extractor) Extract(filePath string) models.Track {
	track := models.Track{Filename: filePath}
	track.DurationSeconds = e.ProbeDuration(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Cannot open file for tag extraction")
		return track
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Debug("No readable tags, using filename-derived metadata")
		return track
	}

	track.Title = optional(metadata.Title())
	track.Artist = optional(metadata.Artist())
	track.Album = optional(metadata.Album())
	track.AlbumArtist = optional(metadata.AlbumArtist())
	track.Genre = optional(metadata.Genre())
	if num, _ := metadata.Track(); num > 0 {
		track.TrackNumber = &num
	}
	return track
}

// ProbeDuration returns the file duration in whole seconds, or nil when the
// format is unsupported or the probe fails.
func (e *Extractor) ProbeDuration(filePath string) *int {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		secs int
		err  error
	)
	switch ext {
	case ".mp3":
		secs, err = durationMP3(filePath)
	case ".flac":
		secs, err = durationFLAC(filePath)
	case ".wav":
		secs, err = durationWAV(filePath)
	case ".m4a":
		secs, err = durationM4A(filePath)
	default:
		err = fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Debug("Duration probe failed")
		return nil
	}
	return &secs
}

// MP3 duration via frame decoding; no average-bitrate estimation fallback
// since a wrong duration is worse than an unknown one here.
func durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if frames == 0 {
				return 0, fmt.Errorf("no decodable mp3 frames: %w", err)
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// FLAC duration via STREAMINFO metadata block.
func durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return int(secs + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration approximated from file size and header; counting every sample
// would require decoding the whole file.
func durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerSampleFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerSampleFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	sampleFrames := pcmBytes / bytesPerSampleFrame
	secs := float64(sampleFrames) / float64(dec.SampleRate)
	return int(secs + 0.5), nil
}

// M4A (AAC in MP4) duration from the mvhd timescale and duration fields. A
// manual atom scan keeps a heavy MP4 dependency out; best-effort.
func durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, fmt.Errorf("mvhd atom not found: %w", err)
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size %d", size)
		}
		if string(head[4:8]) != "moov" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}
		return mvhdDuration(f, int64(size)-8)
	}
}

// mvhdDuration scans inside a moov atom for mvhd and decodes its duration.
func mvhdDuration(f *os.File, limit int64) (int, error) {
	for read := int64(0); read < limit; {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return 0, fmt.Errorf("invalid sub-atom size %d", size)
		}
		if string(head[4:8]) != "mvhd" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += int64(size)
			continue
		}

		verFlags := make([]byte, 4)
		if _, err := io.ReadFull(f, verFlags); err != nil {
			return 0, err
		}
		// Version 1 carries 64-bit creation/modification times and duration.
		if verFlags[0] == 1 {
			if _, err := f.Seek(16, io.SeekCurrent); err != nil {
				return 0, err
			}
			buf := make([]byte, 12)
			if _, err := io.ReadFull(f, buf); err != nil {
				return 0, err
			}
			timescale := binary.BigEndian.Uint32(buf[0:4])
			durUnits := binary.BigEndian.Uint64(buf[4:12])
			if timescale == 0 {
				return 0, fmt.Errorf("invalid mvhd timescale")
			}
			return int(float64(durUnits)/float64(timescale) + 0.5), nil
		}
		if _, err := f.Seek(8, io.SeekCurrent); err != nil {
			return 0, err
		}
		buf := make([]byte, 8)
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, err
		}
		timescale := binary.BigEndian.Uint32(buf[0:4])
		durUnits := binary.BigEndian.Uint32(buf[4:8])
		if timescale == 0 {
			return 0, fmt.Errorf("invalid mvhd timescale")
		}
		return int(float64(durUnits)/float64(timescale) + 0.5), nil
	}
	return 0, fmt.Errorf("mvhd atom not found")
}

// FormatDuration renders seconds as m:ss for display.
func FormatDuration(seconds *int) string {
	if seconds == nil {
		return "?:??"
	}
	return strconv.Itoa(*seconds/60) + ":" + fmt.Sprintf("%02d", *seconds%60)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
