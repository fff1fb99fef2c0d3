package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 1)

	token, err := svc.Generate(RoleTeacher)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, RoleTeacher, claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(RoleTeacher)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 1)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Validate(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyAccessCode(t *testing.T) {
	h := &Handler{}
	h.cfg.TeacherCode = "letmein"

	require.True(t, h.verify("letmein"))
	require.False(t, h.verify("wrong"))
	require.False(t, h.verify(""))
}
