package sample

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dh1tw/gosamplerate"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"klangroom/audio"
	"klangroom/debug"
)

// DecodeFile decodes a .wav or .mp3 file and converts it to rate. A rate of
// zero keeps the file's own rate.
func DecodeFile(path string, rate int) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample: %w", err)
	}
	defer f.Close()

	buf, err := Decode(f, filepath.Ext(path), rate)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return buf, nil
}

// Decode decodes audio of the given extension from r.
func Decode(r io.ReadSeeker, ext string, rate int) (*audio.Buffer, error) {
	var (
		buf *audio.Buffer
		err error
	)
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		buf, err = decodeWAV(r)
	case ".mp3":
		buf, err = decodeMP3(r)
	default:
		return nil, fmt.Errorf("%q: %w", ext, ErrUnknownFormat)
	}
	if err != nil {
		return nil, err
	}
	if buf.Frames() == 0 {
		return nil, ErrEmpty
	}
	return resample(buf, rate)
}

func decodeWAV(r io.ReadSeeker) (*audio.Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %w", ErrUnknownFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seek to PCM: %w", err)
	}

	format := d.Format()
	bitDepth := int(d.SampleBitDepth())
	if bitDepth == 0 || format == nil || format.NumChannels == 0 {
		return nil, fmt.Errorf("missing WAV format chunk: %w", ErrUnknownFormat)
	}
	bytesPerSample := (bitDepth-1)/8 + 1
	nsamples := int(d.PCMLen()) / bytesPerSample

	pcm := &goaudio.IntBuffer{
		Format:         format,
		Data:           make([]int, nsamples),
		SourceBitDepth: bitDepth,
	}
	n, err := d.PCMBuffer(pcm)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read PCM: %w", err)
	}

	// 8-bit PCM is unsigned around 128, wider depths are signed
	factor := math.Pow(2, float64(bitDepth-1))
	bias := 0.0
	if bitDepth == 8 {
		bias = 128
	}
	data := make([]float32, n)
	for i, v := range pcm.Data[:n] {
		data[i] = float32((float64(v) - bias) / factor)
	}
	// drop a trailing partial frame
	data = data[:len(data)/format.NumChannels*format.NumChannels]

	return &audio.Buffer{
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		Data:       data,
	}, nil
}

func decodeMP3(r io.Reader) (*audio.Buffer, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open MP3 stream: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("read MP3 frames: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo
	const channels = 2
	nsamples := len(raw) / 2 / channels * channels
	data := make([]float32, nsamples)
	for i := range data {
		data[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return &audio.Buffer{SampleRate: d.SampleRate(), Channels: channels, Data: data}, nil
}

func resample(buf *audio.Buffer, rate int) (*audio.Buffer, error) {
	if rate <= 0 || rate == buf.SampleRate {
		return buf, nil
	}
	ratio := float64(rate) / float64(buf.SampleRate)
	out, err := gosamplerate.Simple(buf.Data, ratio, buf.Channels, gosamplerate.SRC_SINC_MEDIUM_QUALITY)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d Hz: %w", buf.SampleRate, rate, err)
	}
	debug.Log("store", "resampled %d -> %d Hz (%d -> %d samples)", buf.SampleRate, rate, len(buf.Data), len(out))
	return &audio.Buffer{
		SampleRate: rate,
		Channels:   buf.Channels,
		Data:       out[:len(out)/buf.Channels*buf.Channels],
	}, nil
}
