package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountConversions(t *testing.T) {
	a := FromTokens(15)
	require.Equal(t, int64(15_000_000), a.BaseUnits())
	require.Equal(t, int64(15), a.Tokens())
	require.True(t, a.IsPositive())

	b := FromBaseUnits(1_500_000)
	require.Equal(t, int64(1), b.Tokens())
	require.Equal(t, int64(1_500_000), b.BaseUnits())

	require.True(t, FromTokens(0).IsZero())
	require.Equal(t, int64(16_500_000), a.Add(b).BaseUnits())
}

func TestAmountString(t *testing.T) {
	require.Equal(t, "13.000000 CONVO", FromTokens(13).String())
	require.Equal(t, "0.000001 CONVO", FromBaseUnits(1).String())
	require.Equal(t, "-1.250000 CONVO", FromBaseUnits(-1_250_000).String())
}

func TestParseTokens(t *testing.T) {
	cases := map[string]int64{
		"12":       12_000_000,
		"12.5":     12_500_000,
		"0.000001": 1,
		"-3":       -3_000_000,
	}
	for in, want := range cases {
		got, err := ParseTokens(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got.BaseUnits(), in)
	}

	for _, in := range []string{"", "abc", "1.0000001", "12abc", "1.2.3", "1.-5", "0x10"} {
		_, err := ParseTokens(in)
		require.Error(t, err, in)
	}
}
