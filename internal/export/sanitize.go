package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// nameMarks are the punctuation marks a storyboard title keeps in a file name.
var nameMarks = []rune{' ', '-', '_', '.', ',', '(', ')'}

// SanitizeName turns a storyboard title into a file name stem of at most
// maxLen runes. Control characters are dropped and other disallowed runes
// become underscores.
func SanitizeName(title string, maxLen int) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r), slices.Contains(nameMarks, r):
			return r
		}
		return '_'
	}, title)
	stem = strings.TrimSpace(stem)

	if maxLen > 0 {
		if runes := []rune(stem); len(runes) > maxLen {
			stem = string(runes[:maxLen])
		}
	}
	return stem
}

// ErrInvalidOutputDir wraps every ValidateOutputDir failure.
var ErrInvalidOutputDir = errors.New("invalid output_dir")

// ValidateOutputDir accepts only clean paths to directories that already exist.
func ValidateOutputDir(dir string) error {
	if reason := outputDirProblem(dir); reason != "" {
		return fmt.Errorf("%w: %s", ErrInvalidOutputDir, reason)
	}
	return nil
}

func outputDirProblem(dir string) string {
	switch {
	case strings.TrimSpace(dir) == "":
		return "required"
	case slices.Contains(strings.Split(filepath.ToSlash(dir), "/"), ".."):
		return "path traversal"
	case filepath.Clean(dir) != dir:
		return "must be a clean path"
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "does not exist"
	case err != nil:
		return err.Error()
	case !info.IsDir():
		return "not a directory"
	}
	return ""
}
