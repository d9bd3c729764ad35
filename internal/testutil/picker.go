package testutil

import "stockbook/internal/core"

// StubPicker returns a fixed destination, or core.ErrCancelled when
// Cancelled is set. It records the suggested name it was offered.
type StubPicker struct {
	Dest      string
	Cancelled bool
	Suggested string
}

func (p *StubPicker) Pick(suggested string) (string, error) {
	p.Suggested = suggested
	if p.Cancelled {
		return "", core.ErrCancelled
	}
	return p.Dest, nil
}
