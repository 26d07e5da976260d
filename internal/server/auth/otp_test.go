package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuffixOTP_TrailingCharacters(t *testing.T) {
	tok, err := NewIssuer("k").Issue(Claims{Username: "alice", Purpose: common.PurposeRegister}, time.Minute)
	require.NoError(t, err)

	otp := SuffixOTP{}.Derive(tok)
	assert.Len(t, otp, OTPLength)
	assert.Equal(t, tok[len(tok)-6:], otp)
	assert.Equal(t, "abc", SuffixOTP{}.Derive("abc"))
}

func TestHMACOTP_DeterministicDigits(t *testing.T) {
	d := NewHMACOTP("secret")

	a := d.Derive("token-1")
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), a)
	assert.Equal(t, a, d.Derive("token-1"))
	assert.NotEqual(t, a, NewHMACOTP("other").Derive("token-1"))
}

func TestNewOTPDeriver(t *testing.T) {
	d, err := NewOTPDeriver("suffix", "k")
	require.NoError(t, err)
	assert.IsType(t, SuffixOTP{}, d)

	d, err = NewOTPDeriver("hmac", "k")
	require.NoError(t, err)
	assert.IsType(t, HMACOTP{}, d)

	_, err = NewOTPDeriver("random", "k")
	assert.Error(t, err)
}

func TestEqualOTP(t *testing.T) {
	assert.True(t, EqualOTP("123456", "123456"))
	assert.False(t, EqualOTP("123456", "123457"))
	assert.False(t, EqualOTP("123456", ""))
}
