package persist

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

var ErrCorruptSave = errors.New("corrupt save")

// encode serializes a state into an lz4 frame and returns it with the
// blake3 sum of the compressed bytes.
func encode(state WorldState) ([]byte, []byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal world state: %w", err)
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, nil, fmt.Errorf("compress world state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, nil, fmt.Errorf("compress world state: %w", err)
	}
	payload := buf.Bytes()
	sum := blake3.Sum256(payload)
	return payload, sum[:], nil
}

func decode(payload, checksum []byte) (WorldState, error) {
	sum := blake3.Sum256(payload)
	if len(checksum) != len(sum) || subtle.ConstantTimeCompare(sum[:], checksum) != 1 {
		return WorldState{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptSave)
	}
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return WorldState{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	var state WorldState
	if err := json.Unmarshal(raw, &state); err != nil {
		return WorldState{}, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	return state, nil
}
