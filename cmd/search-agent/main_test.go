package main

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReadQuestion(t *testing.T) {
	errClosed := errors.New("read /dev/stdin: file already closed")

	tests := []struct {
		name    string
		input   io.Reader
		want    string
		wantErr error
	}{
		{name: "line", input: strings.NewReader("best running shoes\nignored\n"), want: "best running shoes"},
		{name: "partial line at eof", input: strings.NewReader("  no newline  "), want: "no newline"},
		{name: "empty input", input: strings.NewReader(""), want: ""},
		{name: "read error", input: failingReader{err: errClosed}, wantErr: errClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuestion(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("readQuestion() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readQuestion() = %q, want %q", got, tt.want)
			}
		})
	}
}
