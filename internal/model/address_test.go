package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wsolMint   = "So11111111111111111111111111111111111111112"
	demoWallet = "vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "wrapped sol mint", input: wsolMint},
		{name: "wallet", input: demoWallet},
		{name: "empty", input: "  ", wantErr: true},
		{name: "non base58 character", input: "0OIl" + demoWallet[4:], wantErr: true},
		{name: "too short", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAddress))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalizeAddresses(t *testing.T) {
	out, err := NormalizeAddresses([]string{" " + demoWallet, "", wsolMint, demoWallet})
	require.NoError(t, err)
	assert.Equal(t, []string{demoWallet, wsolMint}, out)

	_, err = NormalizeAddresses([]string{demoWallet, "bad"})
	require.Error(t, err)
}
