package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "valid lowercase address",
			input:     "0x8ba1f109551bd432803012645ac136ddd64dba72",
			wantError: false,
		},
		{
			name:      "valid checksummed address",
			input:     "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
			wantError: false,
		},
		{
			name:      "valid without 0x prefix",
			input:     "8ba1f109551bd432803012645ac136ddd64dba72",
			wantError: false,
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "too short",
			input:     "0x8ba1f109",
			wantError: true,
		},
		{
			name:      "non-hex characters",
			input:     "0xZZa1f109551bd432803012645ac136ddd64dba72",
			wantError: true,
		},
		{
			name:      "arbitrary string",
			input:     "alice",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	// Two spellings of the same address canonicalize identically.
	a, err := Canonical("0x8ba1f109551bd432803012645ac136ddd64dba72")
	require.NoError(t, err)
	b, err := Canonical("0x8BA1F109551BD432803012645AC136DDD64DBA72")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Canonical("not-an-address")
	assert.Error(t, err)
}
