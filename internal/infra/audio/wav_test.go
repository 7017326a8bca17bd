package audio_test

import (
	"encoding/binary"
	"testing"

	"ramu/internal/infra/audio"
)

func TestEncodeWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767}
	wav := audio.EncodeWAV(samples, 16000)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("length: got %d, want %d", len(wav), 44+len(samples)*2)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatalf("bad header: %q", wav[:44])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate: got %d, want 16000", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != uint32(len(samples)*2) {
		t.Errorf("data size: got %d", size)
	}
	if last := int16(binary.LittleEndian.Uint16(wav[50:52])); last != 32767 {
		t.Errorf("last sample: got %d, want 32767", last)
	}
}
