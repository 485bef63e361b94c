package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tastebase/live/internal/ierr"
)

// Identity is the authenticated user behind a connection. Tokens are minted
// by the main tastebase API; this process only verifies them.
type Identity struct {
	UserId   string
	Username string
}

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, apiKeys []string) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience("tastebase"),
	)

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

// VerifyToken validates a user token and resolves the identity it carries.
func (a *Authenticator) VerifyToken(tokenString string) (*Identity, error) {
	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
	}

	if claims.Username == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("username claim cannot be empty"))
	}

	return &Identity{
		UserId:   subject,
		Username: claims.Username,
	}, nil
}

// VerifyAPIKey authenticates service-to-service callers of the REST bridge.
func (a *Authenticator) VerifyAPIKey(apiKey string) error {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
