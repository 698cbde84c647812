package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/luarena/server/protocol"
)

// WSProtocol is the fixed websocket subprotocol name. Browser clients
// cannot set an Authorization header on upgrade requests, so the bearer
// token may ride along as an extra entry in Sec-WebSocket-Protocol.
const WSProtocol = "luarena"

// Issuer is the "iss" claim on every token this server accepts.
const Issuer = "luarena"

// DefaultExpiry is the lifetime of tokens issued by the gentoken utility.
const DefaultExpiry = 10 * time.Minute

// leeway tolerated when validating the exp/iat claims.
const leeway = 15 * time.Second

// Audience selects which endpoint class a token may access.
type Audience string

const (
	AudiencePlayer Audience = "player"
	AudienceViewer Audience = "viewer"
)

// ErrMissingToken is returned when neither the Authorization header nor
// the Sec-WebSocket-Protocol header carries a token.
var ErrMissingToken = errors.New("missing bearer token")

// Claims are the JWT claims for both players and viewers. Name is only
// set for player tokens.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against the shared HS256 secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// VerifyPlayer validates a player token and extracts the subject id and
// profile.
func (v *Verifier) VerifyPlayer(token string) (uuid.UUID, protocol.PlayerProfile, error) {
	claims, err := v.verify(token, AudiencePlayer)
	if err != nil {
		return uuid.Nil, protocol.PlayerProfile{}, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, protocol.PlayerProfile{}, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, protocol.PlayerProfile{Name: claims.Name}, nil
}

// VerifyViewer validates a viewer token and extracts the subject id.
func (v *Verifier) VerifyViewer(token string) (uuid.UUID, error) {
	claims, err := v.verify(token, AudienceViewer)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

func (v *Verifier) verify(token string, aud Audience) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(string(aud)),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Issue signs a token for the given subject and audience. The name is
// ignored for viewer tokens.
func Issue(secret string, id uuid.UUID, aud Audience, name string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.String(),
			Audience:  jwt.ClaimStrings{string(aud)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
	if aud == AudiencePlayer {
		claims.Name = name
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// TokenFromRequest extracts the bearer token from an upgrade request.
// The Authorization header wins; otherwise any Sec-WebSocket-Protocol
// entry other than the fixed subprotocol name is treated as the token.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "", errors.New("authorization header is not a bearer token")
		}
		return strings.TrimSpace(token), nil
	}

	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, entry := range strings.Split(header, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" && entry != WSProtocol {
				return entry, nil
			}
		}
	}

	return "", ErrMissingToken
}
