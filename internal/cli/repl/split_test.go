package repl

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"GET k", []string{"GET", "k"}},
		{"  SET\tk   v ", []string{"SET", "k", "v"}},
		{`SET k "hello world"`, []string{"SET", "k", "hello world"}},
		{`SET k "a\nb\x00"`, []string{"SET", "k", "a\nb\x00"}},
		{`SET k "say \"hi\""`, []string{"SET", "k", `say "hi"`}},
		{`SET k 'it\'s raw \n'`, []string{"SET", "k", `it's raw \n`}},
		{`SET k ""`, []string{"SET", "k", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := SplitArgs(tt.line)
			if err != nil {
				t.Fatalf("SplitArgs() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitArgs_Errors(t *testing.T) {
	tests := []struct {
		line    string
		wantErr error
	}{
		{`SET k "open`, ErrUnbalancedQuotes},
		{`SET k 'open`, ErrUnbalancedQuotes},
		{`SET k "a"b`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := SplitArgs(tt.line)
			if err == nil {
				t.Fatal("SplitArgs() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("SplitArgs() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
