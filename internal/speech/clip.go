package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Encoding is the audio encoding of a clip as understood by the providers.
type Encoding string

const (
	EncodingLinear16 Encoding = "LINEAR16"
	EncodingFLAC     Encoding = "FLAC"
)

// Container is the file format the clip was uploaded in.
type Container string

const (
	ContainerWAV  Container = "wav"
	ContainerAIFF Container = "aiff"
	ContainerFLAC Container = "flac"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatExtensible = 0xFFFE
)

// Clip describes an audio file on disk whose header has been validated.
type Clip struct {
	Path       string
	Container  Container
	Encoding   Encoding
	SampleRate int
	Channels   int

	// DataOffset and DataSize locate the samples inside the file. For WAV
	// this skips the RIFF header; for FLAC the whole file is the payload.
	DataOffset int64
	DataSize   int64

	// pcm holds the samples converted to 16-bit when the source was not
	// 16-bit PCM.
	pcm []byte
}

// Empty reports whether the clip carries no samples at all.
func (c *Clip) Empty() bool {
	return c.DataSize == 0
}

func (c *Clip) setPCM(pcm []byte) {
	c.pcm = pcm
	c.DataOffset = 0
	c.DataSize = int64(len(pcm))
}

// OpenClip reads the header of the file at path. WAV (8, 16, 24 or 32-bit
// PCM, 32 or 64-bit float) and AIFF clips are exposed as 16-bit LINEAR16;
// FLAC is passed through. Anything else yields ErrUndecodableAudio.
func OpenClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat clip: %w", err)
	}

	var magic [12]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: file too short", ErrUndecodableAudio)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek clip: %w", err)
	}

	var clip *Clip
	switch {
	case bytes.Equal(magic[0:4], []byte("fLaC")):
		clip = &Clip{Container: ContainerFLAC, Encoding: EncodingFLAC, DataSize: info.Size()}
	case bytes.Equal(magic[0:4], []byte("RIFF")) && bytes.Equal(magic[8:12], []byte("WAVE")):
		clip, err = openWAV(f, info.Size())
	case bytes.Equal(magic[0:4], []byte("FORM")) && (bytes.Equal(magic[8:12], []byte("AIFF")) || bytes.Equal(magic[8:12], []byte("AIFC"))):
		clip, err = openAIFF(f)
	default:
		return nil, fmt.Errorf("%w: unsupported container", ErrUndecodableAudio)
	}
	if err != nil {
		return nil, err
	}
	clip.Path = path
	return clip, nil
}

func openWAV(f *os.File, fileSize int64) (*Clip, error) {
	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableAudio, err)
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero channels or sample rate", ErrUndecodableAudio)
	}
	if err := d.FwdToPCM(); err != nil || d.PCMChunk == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrUndecodableAudio)
	}

	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek clip: %w", err)
	}
	// The decoder pads odd chunk sizes, which wraps the 0xFFFFFFFF left by
	// streaming writers, so the size is taken from the header itself.
	var rawSize [4]byte
	if _, err := f.ReadAt(rawSize[:], offset-4); err != nil {
		return nil, fmt.Errorf("%w: truncated data chunk", ErrUndecodableAudio)
	}
	size := int64(binary.LittleEndian.Uint32(rawSize[:]))
	if remaining := fileSize - offset; size > remaining {
		size = remaining
	}

	clip := &Clip{
		Container:  ContainerWAV,
		Encoding:   EncodingLinear16,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}
	bits := int(d.BitDepth)

	switch d.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
		if bits == 16 {
			clip.DataOffset = offset
			clip.DataSize = size
			return clip, nil
		}
		d.PCMChunk.R = io.NewSectionReader(f, offset, size)
		buf, err := d.FullPCMBuffer()
		if err != nil {
			return nil, fmt.Errorf("%w: %d-bit samples: %v", ErrUndecodableAudio, bits, err)
		}
		clip.setPCM(toLinear16(buf.Data, bits, true))
	case wavFormatIEEEFloat:
		raw := make([]byte, size)
		if _, err := f.ReadAt(raw, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read clip: %w", err)
		}
		pcm, err := floatToLinear16(raw, bits)
		if err != nil {
			return nil, err
		}
		clip.setPCM(pcm)
	default:
		return nil, fmt.Errorf("%w: wav format %d is not PCM", ErrUndecodableAudio, d.WavAudioFormat)
	}
	return clip, nil
}

func openAIFF(f *os.File) (*Clip, error) {
	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid aiff", ErrUndecodableAudio)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableAudio, err)
	}

	clip := &Clip{
		Container:  ContainerAIFF,
		Encoding:   EncodingLinear16,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}
	clip.setPCM(toLinear16(buf.Data, int(d.BitDepth), false))
	return clip, nil
}

// toLinear16 rescales integer samples of the given depth to little-endian
// 16-bit. 8-bit WAV samples are unsigned; 8-bit AIFF samples are signed.
func toLinear16(samples []int, bits int, unsigned8 bool) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		switch {
		case bits == 8 && unsigned8:
			v = (v - 128) << 8
		case bits <= 16:
			v <<= 16 - bits
		default:
			v >>= bits - 16
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

func floatToLinear16(raw []byte, bits int) ([]byte, error) {
	if bits != 32 && bits != 64 {
		return nil, fmt.Errorf("%w: %d-bit float samples", ErrUndecodableAudio, bits)
	}
	width := bits / 8
	n := len(raw) / width
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		var s float64
		if bits == 32 {
			s = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*width:])))
		} else {
			s = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*width:]))
		}
		if math.IsNaN(s) {
			s = 0
		}
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(s*math.MaxInt16))))
	}
	return out, nil
}

// ReadAudio returns the clip's payload: 16-bit samples for WAV and AIFF,
// the whole file for FLAC.
func (c *Clip) ReadAudio() ([]byte, error) {
	if c.pcm != nil {
		return c.pcm, nil
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	buf := make([]byte, c.DataSize)
	if _, err := f.ReadAt(buf, c.DataOffset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read clip: %w", err)
	}
	return buf, nil
}

// WriteWAV writes the clip's 16-bit samples as a new PCM WAV file at path.
func (c *Clip) WriteWAV(path string) error {
	if c.Encoding != EncodingLinear16 {
		return fmt.Errorf("cannot write %s clip as wav", c.Encoding)
	}
	data, err := c.ReadAudio()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	samples := make([]int, len(data)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
	}
	enc := wav.NewEncoder(f, c.SampleRate, 16, c.Channels, wavFormatPCM)
	err = enc.Write(&audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{NumChannels: c.Channels, SampleRate: c.SampleRate},
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}
