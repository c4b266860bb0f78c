//go:build windows

package cmd

import (
	"fmt"
	"os"
)

const ttyPath = "CONIN$"

func openTTY() (*os.File, error) {
	f, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("no console available: %w", err)
	}
	return f, nil
}

// termWidth returns 0 on Windows; the width preflight falls back to $COLUMNS.
func termWidth(*os.File) int {
	return 0
}
