package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "o****@example.com", MaskEmail("owner@example.com"))
	assert.Equal(t, "", MaskEmail("  "))
	assert.Equal(t, "****", MaskEmail("abc"))
}

func TestMaskPersonalDataOnlyTouchesPersonalKeys(t *testing.T) {
	masked := MaskPersonalData(map[string]any{
		"recipient":      "owner@example.com",
		"invoice_number": "INV-202503-00001",
		"reference":      "TX-99887766",
		"nested":         map[string]any{"email": "a@b.co"},
	})
	assert.Equal(t, "o****@example.com", masked["recipient"])
	assert.Equal(t, "INV-202503-00001", masked["invoice_number"])
	assert.Equal(t, "****7766", masked["reference"])
	assert.Equal(t, map[string]any{"email": "a****@b.co"}, masked["nested"])
	assert.Nil(t, MaskPersonalData(nil))
}
