package audio

import (
	"encoding/binary"
	"fmt"
)

// wavFormatPCM is the only WAVE format tag the decoder accepts.
const wavFormatPCM = 1

// DecodeWAV parses a RIFF/WAVE container holding 16-bit PCM data and returns
// it as a Clip. Compressed or float formats are rejected with [ErrInvalid] —
// the ingest layer is responsible for transcoding anything fancier.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, fmt.Errorf("%w: not a RIFF/WAVE container", ErrInvalid)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFmt       bool
	)

	// Walk the chunk list. The fmt chunk must precede data.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return Clip{}, fmt.Errorf("%w: truncated %q chunk", ErrInvalid, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("%w: short fmt chunk", ErrInvalid)
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != wavFormatPCM {
				return Clip{}, fmt.Errorf("%w: unsupported WAVE format tag %d (want PCM)", ErrInvalid, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true

		case "data":
			if !haveFmt {
				return Clip{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalid)
			}
			if bitsPerSample != 16 {
				return Clip{}, fmt.Errorf("%w: %d-bit samples (want 16-bit)", ErrInvalid, bitsPerSample)
			}
			if channels < 1 {
				return Clip{}, fmt.Errorf("%w: %d channels", ErrInvalid, channels)
			}
			return FromPCM(data[body:body+size], sampleRate, channels), nil
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		off = body + size + size%2
	}

	return Clip{}, fmt.Errorf("%w: no data chunk found", ErrInvalid)
}

// EncodeWAV renders the clip as a mono 16-bit PCM RIFF/WAVE file, the format
// hosted transcription APIs accept.
func EncodeWAV(c Clip) []byte {
	dataLen := len(c.Samples) * 2
	buf := make([]byte, 44+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(c.SampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(buf[44+2*i:46+2*i], uint16(s))
	}
	return buf
}
