package makemkv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseMSGCode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"error code", "MSG:5010,0,1,\"SCSI error\",\"format\"", 5010},
		{"info code", "MSG:1001,0,1,\"info message\",\"format\"", 1001},
		{"zero code", "MSG:0,0,1,\"msg\",\"fmt\"", 0},
		{"non-MSG line", "PRGV:0,50,100", -1},
		{"empty line", "", -1},
		{"MSG prefix only", "MSG:", -1},
		{"MSG no comma", "MSG:abc", -1},
		{"MSG non-numeric code", "MSG:abc,0,1,\"msg\"", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseMSGCode(tt.line); got != tt.want {
				t.Errorf("parseMSGCode(%q) = %d, want %d", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseMSGText(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"standard error", `MSG:5010,0,3,"Failed to open disc","format"`, "Failed to open disc"},
		{"unquoted field", "MSG:1001,0,1,some text,fmt", "some text"},
		{"non-MSG line", "PRGV:0,50,100", ""},
		{"too few fields", "MSG:5010,0", ""},
		{"MSG prefix only", "MSG:", ""},
		{"quoted comma", `MSG:5010,0,3,"Error reading, disc scratched","fmt"`, "Error reading, disc scratched"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseMSGText(tt.line); got != tt.want {
				t.Errorf("parseMSGText(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseMSGArgs(t *testing.T) {
	line := `MSG:5003,0,2,"Failed to save title 1 to file /output/Disc_01/title_t01.mkv","Failed to save title %1 to file %2","1","/output/Disc_01/title_t01.mkv"`
	msg, ok := ParseMSG(line)
	if !ok {
		t.Fatal("expected MSG to parse")
	}
	want := MSG{
		Code:   5003,
		Text:   "Failed to save title 1 to file /output/Disc_01/title_t01.mkv",
		Format: "Failed to save title %1 to file %2",
		Args:   []string{"1", "/output/Disc_01/title_t01.mkv"},
	}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Fatalf("MSG mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMSGSprintf(t *testing.T) {
	saved, failed := ParseMSGSprintf(`MSG:5004,0,2,"Copy complete. 3 titles saved, 1 failed.","%1 titles saved, %2 failed.","3","1"`)
	if saved != 3 || failed != 1 {
		t.Fatalf("got saved=%d failed=%d", saved, failed)
	}
	if s, f := ParseMSGSprintf("PRGV:1,2,3"); s != 0 || f != 0 {
		t.Fatalf("expected zeros for non-MSG line, got %d %d", s, f)
	}
}
