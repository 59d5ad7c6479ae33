package channel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"birdsbuddy/internal/models"
)

// decodeDocument turns a device document payload into a patch. Empty
// payloads, JSON null and {} mean the document has no data.
func decodeDocument(payload []byte) (*models.SnapshotPatch, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, nil
	}
	var p models.SnapshotPatch
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode device document: %w", err)
	}
	if p == (models.SnapshotPatch{}) {
		return nil, nil
	}
	return &p, nil
}
