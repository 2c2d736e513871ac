package audio

import (
	"encoding/binary"
	"math"
)

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// ToFormat converts f to the target format: channels are folded to mono
// first, then the result is resampled. Only mono targets are supported
// since every transcription backend consumes mono audio; a stereo target is
// returned with its channel count unchanged.
func ToFormat(f Frame, target Format) Frame {
	if len(f.Data)%2 != 0 {
		f.Data = f.Data[:len(f.Data)-1]
	}
	if f.SampleRate == target.SampleRate && f.Channels == target.Channels {
		return f
	}
	pcm := f.Data
	channels := f.Channels
	if target.Channels == 1 && channels > 1 {
		pcm = DownmixToMono(pcm, channels)
		channels = 1
	}
	rate := f.SampleRate
	if channels == 1 && target.SampleRate > 0 && rate != target.SampleRate {
		pcm = ResampleMono16(pcm, rate, target.SampleRate)
		rate = target.SampleRate
	}
	return Frame{Data: pcm, SampleRate: rate, Channels: channels, Timestamp: f.Timestamp}
}

// DownmixToMono averages all channels of interleaved 16-bit PCM per frame.
func DownmixToMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / (2 * channels)
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(pcm[idx:])))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/int32(channels))))
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	src := PCMToInt16(pcm)
	n := int(int64(len(src)) * int64(dstRate) / int64(srcRate))
	if n == 0 {
		return nil
	}
	dst := make([]int16, n)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dst {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := src[idx]
		s1 := s0
		if idx+1 < len(src) {
			s1 = src[idx+1]
		}
		dst[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return Int16ToPCM(dst)
}

// PCMToInt16 decodes little-endian 16-bit PCM. A trailing odd byte is ignored.
func PCMToInt16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Int16ToPCM encodes samples as little-endian 16-bit PCM.
func Int16ToPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// PCMToFloat32Mono down-mixes 16-bit PCM to mono float32 samples normalised
// to [-1, 1].
func PCMToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(pcm) / (2 * channels)
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[idx:]))) / 32768.0
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// RMS returns the root-mean-square energy of 16-bit PCM. The maximum for
// full-scale audio is 32767; room noise sits well below 300.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
