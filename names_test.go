package waymark

import "testing"

func TestMarkNameClasses(t *testing.T) {
	tests := []struct {
		name     rune
		file     bool
		global   bool
		mnemonic bool
		saved    bool
	}{
		{'a', true, false, false, true},
		{'z', true, false, false, true},
		{'[', true, false, false, true},
		{']', true, false, false, true},
		{'^', true, false, false, true},
		{'.', true, false, false, true},
		{'<', true, false, false, false},
		{'>', true, false, false, false},
		{'A', false, true, true, false},
		{'0', false, true, true, false},
		{'9', false, true, true, false},
		{'"', false, true, false, false},
		{'\'', false, true, false, false},
		{'`', false, true, false, false},
		{'!', false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			if got := IsFileMark(tt.name); got != tt.file {
				t.Errorf("IsFileMark = %v", got)
			}
			if got := IsGlobalMark(tt.name); got != tt.global {
				t.Errorf("IsGlobalMark = %v", got)
			}
			if got := IsBookmarkMnemonic(tt.name); got != tt.mnemonic {
				t.Errorf("IsBookmarkMnemonic = %v", got)
			}
			if got := isSavedFileMark(tt.name); got != tt.saved {
				t.Errorf("isSavedFileMark = %v", got)
			}
			if got := ValidSetMark(tt.name); got != (tt.file || tt.global) {
				t.Errorf("ValidSetMark = %v", got)
			}
		})
	}
}
