package app

import (
	"fmt"

	"github.com/hyperifyio/docwatch/internal/cache"
	"github.com/hyperifyio/docwatch/internal/diag"
)

// WriteSummary stores the machine-readable run summary at path.
func WriteSummary(path string, s *diag.Summary) error {
	b, err := s.JSON()
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := cache.WriteFileAtomic(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
