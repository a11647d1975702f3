package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/coagronet/console/internal/domain/session"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is reported for tokens whose payload cannot be decoded.
var ErrMalformedToken = errors.New("token payload cannot be decoded")

// flexID decodes ids sent either as JSON numbers or as strings.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

// Claims is the payload of tokens issued by the inventory API.
type Claims struct {
	jwt.RegisteredClaims
	Correo         string          `json:"correo,omitempty"`
	EmpresaID      flexID          `json:"empresaId,omitempty"`
	EmpresaNombre  string          `json:"empresaNombre,omitempty"`
	RolID          flexID          `json:"rolId,omitempty"`
	RolNombre      string          `json:"rolNombre,omitempty"`
	RolesByCompany json.RawMessage `json:"rolesByCompany,omitempty"`
}

// TokenInfo is what the console learns from a token without verifying it.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
	// Context is set when the token is scoped to a company and role.
	Context        *session.CompanyRole
	RolesByCompany []session.CompanyRole
	// Opaque is true when the payload could not be decoded; ExpiresAt then
	// comes from the fallback TTL.
	Opaque bool
}

// TokenInspector decodes token payloads. Signatures are not checked: the
// API verifies every token it receives and the console only uses the
// payload to gate navigation.
type TokenInspector struct {
	parser      *jwt.Parser
	fallbackTTL time.Duration
	now         func() time.Time
}

// NewTokenInspector creates an inspector. fallbackTTL is used for tokens
// without an exp claim.
func NewTokenInspector(fallbackTTL time.Duration) *TokenInspector {
	return &TokenInspector{
		parser:      jwt.NewParser(),
		fallbackTTL: fallbackTTL,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (i *TokenInspector) WithClock(now func() time.Time) *TokenInspector {
	i.now = now
	return i
}

// Parse decodes the payload of token.
func (i *TokenInspector) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := i.parser.ParseUnverified(strings.TrimPrefix(token, "Bearer "), claims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	return claims, nil
}

// Inspect extracts expiry and context from token. It never fails: an
// undecodable token is treated as opaque.
func (i *TokenInspector) Inspect(token string) TokenInfo {
	claims, err := i.Parse(token)
	if err != nil {
		return TokenInfo{ExpiresAt: i.now().Add(i.fallbackTTL), Opaque: true}
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	} else {
		info.ExpiresAt = i.now().Add(i.fallbackTTL)
	}
	if claims.EmpresaID != 0 && claims.RolID != 0 {
		info.Context = &session.CompanyRole{
			EmpresaID:     int64(claims.EmpresaID),
			EmpresaNombre: claims.EmpresaNombre,
			RolID:         int64(claims.RolID),
			RolNombre:     claims.RolNombre,
		}
	}
	if len(claims.RolesByCompany) > 0 {
		// A malformed role list is dropped; the user can still sign in.
		info.RolesByCompany, _ = session.ParseRolesByCompany(string(claims.RolesByCompany))
	}
	return info
}
