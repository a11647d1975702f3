// Package session models the per-user console session: the bearer token,
// its expiry, the active screen, the chosen company/role context and the
// UI preference flags. Values are persisted as plain strings, one key each,
// exactly as the browser shell used to keep them in local storage.
package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Key is a session storage key.
type Key string

// Storage keys. The names are part of the wire contract with the browser
// shell and must not change.
const (
	KeyToken           Key = "token"
	KeyTokenExpiration Key = "token_expiration"
	KeyActiveModule    Key = "activeModule"
	KeySidebarOpen     Key = "sidebarOpen"
	KeyDarkMode        Key = "darkMode"
	KeyEmpresaID       Key = "empresaId"
	KeyRolID           Key = "rolId"
	KeyEmpresaNombre   Key = "empresaNombre"
	KeyRolNombre       Key = "rolNombre"
	KeyRolesByCompany  Key = "rolesByCompany"
)

// AllKeys lists every key a session may hold.
func AllKeys() []Key {
	return []Key{
		KeyToken,
		KeyTokenExpiration,
		KeyActiveModule,
		KeySidebarOpen,
		KeyDarkMode,
		KeyEmpresaID,
		KeyRolID,
		KeyEmpresaNombre,
		KeyRolNombre,
		KeyRolesByCompany,
	}
}

// Valid reports whether k is one of the known keys.
func (k Key) Valid() bool {
	for _, known := range AllKeys() {
		if k == known {
			return true
		}
	}
	return false
}

// Values is the raw stored form of a session. Missing keys are absent from
// the map; there is no schema version.
type Values map[Key]string

// Get returns the raw value for k, or "" when absent.
func (v Values) Get(k Key) string {
	if v == nil {
		return ""
	}
	return v[k]
}

// Clone returns a copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// TokenValid reports whether the stored token may be used to gate
// navigation: the token is present and the stored expiry is a number of
// milliseconds greater than now. No signature check happens here, the
// remote API rejects bad tokens on every call.
func TokenValid(token, expiry string, now time.Time) bool {
	if token == "" {
		return false
	}
	ms, ok := parseMillis(expiry)
	if !ok {
		return false
	}
	return ms > now.UnixMilli()
}

// TokenValid is the Values form of TokenValid.
func (v Values) TokenValid(now time.Time) bool {
	return TokenValid(v.Get(KeyToken), v.Get(KeyTokenExpiration), now)
}

func parseMillis(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}

// ParseActiveModule decodes the JSON-encoded activeModule value. An empty
// value is a valid "no module". Anything that is not a JSON string is
// reported with ok=false.
func ParseActiveModule(raw string) (key string, ok bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return "", false
	}
	return key, true
}

// EncodeActiveModule is the inverse of ParseActiveModule.
func EncodeActiveModule(key string) string {
	b, _ := json.Marshal(key)
	return string(b)
}

// EncodeMillis formats a time as the stored expiry value.
func EncodeMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseFlag(raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && b
}
