package jwtware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetExtractorsTrimsSchemeAndParts(t *testing.T) {
	cfg := GetDefaultConfig(Config{
		TokenValidator: TokenValidatorFunc(func(string) (Claims, error) { return nil, nil }),
		TokenLookup:    " header : Authorization , cookie : token ",
		AuthScheme:     " Bearer ",
	})

	require.Len(t, cfg.getExtractors(), 2)
}

func TestRunValidationListenersSkipsNil(t *testing.T) {
	cfg := Config{ValidationListeners: []ValidationListener{nil}}
	require.NoError(t, cfg.runValidationListeners(nil, nil))
}
