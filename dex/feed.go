package dex

import (
	"encoding/json"
	"fmt"
	"os"

	"dexwatch/types"
)

// ReadSwapFile loads decoded swap events from a JSON feed file, the output
// of the upstream DEX log decoders. The file holds a single JSON array of
// swap events; no log decoding happens here.
func ReadSwapFile(path string) (types.SwapEvents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open swap feed file: %w", err)
	}
	defer f.Close()

	var swaps types.SwapEvents
	dec := json.NewDecoder(f)
	if err := dec.Decode(&swaps); err != nil {
		return nil, fmt.Errorf("failed to decode swap feed file %s: %w", path, err)
	}
	return swaps, nil
}
