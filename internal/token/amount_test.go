package token

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxAmount is 2^128 - 1 as a decimal string.
const maxAmount = "340282366920938463463374607431768211455"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{name: "zero", input: "0"},
		{name: "small", input: "12345"},
		{name: "max 128-bit", input: maxAmount},
		{name: "one past max", input: "340282366920938463463374607431768211456", wantError: true},
		{name: "negative", input: "-1", wantError: true},
		{name: "not a number", input: "12a4", wantError: true},
		{name: "empty", input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAmount(tt.input)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, a.String())
			}
		})
	}
}

func TestAmountAdd(t *testing.T) {
	a := NewAmount(100)
	b := NewAmount(40)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "140", sum.String())

	max, err := ParseAmount(maxAmount)
	require.NoError(t, err)
	_, err = max.Add(NewAmount(1))
	assert.ErrorIs(t, err, ErrAmountRange)
}

func TestAmountSub(t *testing.T) {
	a := NewAmount(100)

	diff, err := a.Sub(NewAmount(40))
	require.NoError(t, err)
	assert.Equal(t, "60", diff.String())

	_, err = NewAmount(40).Sub(a)
	assert.ErrorIs(t, err, ErrAmountUnderflow)

	zero, err := a.Sub(a)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestAmountJSON(t *testing.T) {
	a, err := ParseAmount(maxAmount)
	require.NoError(t, err)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"`+maxAmount+`"`, string(data))

	var back Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Zero(t, back.Cmp(a))

	// Bare numbers are tolerated on input.
	require.NoError(t, json.Unmarshal([]byte(`42`), &back))
	assert.Equal(t, "42", back.String())
}

func TestAmountDisplay(t *testing.T) {
	a := NewAmount(1234500)
	assert.Equal(t, "1.2345", a.Display(6))
	assert.Equal(t, "1234500", a.Display(0))
	assert.Equal(t, "0", NewAmount(0).Display(6))
}

func TestExpiration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		exp     Expiration
		height  uint64
		expired bool
	}{
		{name: "never", exp: Expiration{}, height: 1 << 40, expired: false},
		{name: "height in future", exp: Expiration{AtHeight: 100}, height: 99, expired: false},
		{name: "height reached", exp: Expiration{AtHeight: 100}, height: 100, expired: true},
		{name: "height passed", exp: Expiration{AtHeight: 100}, height: 200, expired: true},
		{name: "time in future", exp: Expiration{AtTime: now.Unix() + 60}, height: 1, expired: false},
		{name: "time passed", exp: Expiration{AtTime: now.Unix() - 60}, height: 1, expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.exp.IsExpired(tt.height, now))
		})
	}

	assert.Error(t, Expiration{AtHeight: 1, AtTime: 1}.Validate())
	assert.NoError(t, Expiration{AtHeight: 1}.Validate())
	assert.True(t, Expiration{}.IsNever())
}

func TestExecuteMsgJSONShape(t *testing.T) {
	// Wire shape matches the snake_case single-variant object convention.
	raw := `{"transfer":{"recipient":"0x8ba1f109551bd432803012645ac136ddd64dba72","amount":"40"}}`

	var msg ExecuteMsg
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.NotNil(t, msg.Transfer)
	assert.Nil(t, msg.Burn)
	assert.Equal(t, "40", msg.Transfer.Amount.String())

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"transfer"`))
	assert.False(t, strings.Contains(string(data), `"burn"`))
}
