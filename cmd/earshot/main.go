package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"earshot/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(err)
		}
		os.Exit(1)
	}
}

// printError emits coded errors as a JSON object so callers can parse the
// failure; anything else goes to stderr as plain text.
func printError(err error) {
	if coded, ok := services.AsError(err); ok {
		payload := map[string]any{
			"error": map[string]string{
				"code":    coded.FullCode(),
				"message": coded.Message,
			},
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(payload)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
