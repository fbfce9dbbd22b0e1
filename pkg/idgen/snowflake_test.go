package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextID_Unique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 10000; i++ {
		id := NextID()
		assert.False(t, seen[id], "ID 重复: %d", id)
		seen[id] = true
	}
}

func TestGenerateCommissionNo_Format(t *testing.T) {
	no := GenerateCommissionNo()
	assert.True(t, strings.HasPrefix(no, "CMS"))
	assert.Len(t, no, 3+14+8)
}

func TestGenerateReferralCode_Format(t *testing.T) {
	code := GenerateReferralCode()
	assert.True(t, strings.HasPrefix(code, "REF"))

	other := GenerateReferralCode()
	assert.NotEqual(t, code, other)
}

func TestToBase36(t *testing.T) {
	assert.Equal(t, "0", toBase36(0))
	assert.Equal(t, "Z", toBase36(35))
	assert.Equal(t, "10", toBase36(36))
}
