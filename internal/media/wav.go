package media

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	wavHeaderSize = 44
	wavFormatPCM  = 1
)

// EncodeWAV writes samples as a PCM 16-bit WAV stream with a standard
// 44-byte header.
func EncodeWAV(w io.Writer, f Format, samples []int16) error {
	dataSize := uint32(len(samples) * 2)
	var hdr [wavHeaderSize]byte

	// RIFF header.
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], wavHeaderSize-8+dataSize)
	copy(hdr[8:12], "WAVE")

	// fmt sub-chunk.
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // sub-chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(f.SampleRate*f.Channels*2)) // byte rate
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(f.Channels*2))              // block align
	binary.LittleEndian.PutUint16(hdr[34:36], 16)                                // bits per sample

	// data sub-chunk.
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataSize)

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
