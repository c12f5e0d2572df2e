package services

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(boxType string, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(8+len(payload)))
	copy(out[4:8], boxType)
	copy(out[8:], payload)
	return out
}

func mvhdV0(timescale, duration uint32) []byte {
	payload := make([]byte, 20) // version+flags, ctime, mtime, timescale, duration
	binary.BigEndian.PutUint32(payload[12:16], timescale)
	binary.BigEndian.PutUint32(payload[16:20], duration)
	return box("mvhd", payload)
}

func mvhdV1(timescale uint32, duration uint64) []byte {
	payload := make([]byte, 32)
	payload[0] = 1
	binary.BigEndian.PutUint32(payload[20:24], timescale)
	binary.BigEndian.PutUint64(payload[24:32], duration)
	return box("mvhd", payload)
}

func TestProbeVideoDurationV0(t *testing.T) {
	var mp4 []byte
	mp4 = append(mp4, box("ftyp", []byte("isom0000"))...)
	mp4 = append(mp4, box("moov", mvhdV0(600, 7200))...)

	d := ProbeVideoDuration(bytes.NewReader(mp4))

	require.NotNil(t, d)
	assert.InDelta(t, 12.0, *d, 0.001)
}

func TestProbeVideoDurationV1(t *testing.T) {
	var mp4 []byte
	mp4 = append(mp4, box("ftyp", []byte("isom0000"))...)
	mp4 = append(mp4, box("moov", mvhdV1(1000, 15500))...)

	d := ProbeVideoDuration(bytes.NewReader(mp4))

	require.NotNil(t, d)
	assert.InDelta(t, 15.5, *d, 0.001)
}

func TestProbeVideoDurationGarbage(t *testing.T) {
	assert.Nil(t, ProbeVideoDuration(bytes.NewReader([]byte("pas un mp4"))))
	assert.Nil(t, ProbeVideoDuration(bytes.NewReader(nil)))
}

func TestProbeVideoDurationNoMoov(t *testing.T) {
	mp4 := box("ftyp", []byte("isom0000"))
	mp4 = append(mp4, box("mdat", make([]byte, 64))...)

	assert.Nil(t, ProbeVideoDuration(bytes.NewReader(mp4)))
}
