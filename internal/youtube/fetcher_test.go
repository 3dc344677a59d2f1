package youtube_test

import (
	"testing"

	"vibrato/internal/youtube"
)

func TestUploadsPlaylistID(t *testing.T) {
	tests := []struct {
		name      string
		channelID string
		want      string
		wantErr   bool
	}{
		{"ValidChannel", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", "UU-lHJZR3Gqxm24_Vd_AJ5Yw", false},
		{"MissingPrefix", "lHJZR3Gqxm24_Vd_AJ5Yw", "", true},
		{"PlaylistIDPassedIn", "UU-lHJZR3Gqxm24_Vd_AJ5Yw", "", true},
		{"TooShort", "UC", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := youtube.UploadsPlaylistID(tt.channelID)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %q", tt.channelID, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseChannelInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"RawID", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", false},
		{"RawIDWithWhitespace", "  UC-lHJZR3Gqxm24_Vd_AJ5Yw\n", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", false},
		{"ChannelURL", "https://www.youtube.com/channel/UC-lHJZR3Gqxm24_Vd_AJ5Yw", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", false},
		{"ChannelURLWithPath", "https://www.youtube.com/channel/UC-lHJZR3Gqxm24_Vd_AJ5Yw/videos", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", false},
		{"ChannelURLWithQuery", "https://www.youtube.com/channel/UC-lHJZR3Gqxm24_Vd_AJ5Yw?view=0", "UC-lHJZR3Gqxm24_Vd_AJ5Yw", false},
		{"HandleURL", "https://www.youtube.com/@somechannel", "", true},
		{"Garbage", "not a channel", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := youtube.ParseChannelInput(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
