package audio

import "testing"

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"format": {"filename": "/music/track.mp3", "duration": "183.25", "format_name": "mp3",
			"tags": {"TITLE": "Sandstorm", "artist": "Darude"}},
		"streams": [
			{"codec_type": "video"},
			{"codec_type": "audio", "sample_rate": "44100", "channels": 2}
		]
	}`)

	meta, err := parseProbe("/music/track.mp3", out)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}

	if meta.Filename != "track.mp3" {
		t.Errorf("Expected filename track.mp3, got %s", meta.Filename)
	}
	if meta.Title != "Sandstorm" || meta.Artist != "Darude" {
		t.Errorf("Unexpected tags: %q by %q", meta.Title, meta.Artist)
	}
	if meta.SampleRate != 44100 || meta.Channels != 2 {
		t.Errorf("Unexpected stream info: %d Hz, %d channels", meta.SampleRate, meta.Channels)
	}
	if meta.DurationSec != 183.25 {
		t.Errorf("Expected duration 183.25, got %f", meta.DurationSec)
	}
}

func TestParseProbeNoAudio(t *testing.T) {
	out := []byte(`{"format": {}, "streams": [{"codec_type": "video"}]}`)
	if _, err := parseProbe("x.mp4", out); err == nil {
		t.Error("Expected error without an audio stream")
	}
}

func TestParseProbeInvalidJSON(t *testing.T) {
	if _, err := parseProbe("x", []byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
