package credentials

import (
	"encoding/json"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialKeepsProfileFields(t *testing.T) {
	input := []byte(`{"token":"access-1","refreshToken":"refresh-1","username":"ayse","email":"ayse@example.com","id":42}`)

	var cred Credential
	require.NoError(t, json.Unmarshal(input, &cred))
	assert.Equal(t, "access-1", cred.AccessToken)
	assert.Equal(t, "refresh-1", cred.RefreshToken)
	assert.Equal(t, "ayse", cred.ProfileString("username"))
	assert.NotContains(t, cred.Profile, "token")

	out, err := json.Marshal(cred)
	require.NoError(t, err)
	assert.JSONEq(t, string(input), string(out))
}

func TestCredentialCloneIsDeep(t *testing.T) {
	cred := &Credential{
		AccessToken: "a",
		Profile:     map[string]json.RawMessage{"username": json.RawMessage(`"x"`)},
	}
	cp := cred.Clone()
	cp.Profile["username"][1] = 'y'
	cp.AccessToken = "b"

	assert.Equal(t, "a", cred.AccessToken)
	assert.Equal(t, "x", cred.ProfileString("username"))
	assert.Nil(t, (*Credential)(nil).Clone())
}

func TestCredentialExpiresAt(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := (&Credential{AccessToken: signed}).ExpiresAt()
	require.True(t, ok)
	assert.True(t, got.Equal(exp), "expected %v, got %v", exp, got)

	_, ok = (&Credential{AccessToken: "opaque-token"}).ExpiresAt()
	assert.False(t, ok)
}
