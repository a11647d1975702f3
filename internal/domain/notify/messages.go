package notify

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a localised message.
type Key string

const (
	MsgLoginFailed          Key = "login.failed"
	MsgLoggedOut            Key = "logout.done"
	MsgMissingToken         Key = "session.missing_token"
	MsgContextSwitched      Key = "context.switched"
	MsgContextSwitchFailed  Key = "context.switch_failed"
	MsgContextUnknown       Key = "context.unknown"
	MsgVerified             Key = "account.verified"
	MsgVerifyFailed         Key = "account.verify_failed"
	MsgResetSent            Key = "account.reset_sent"
	MsgResetFailed          Key = "account.reset_failed"
	MsgPasswordChanged      Key = "account.password_changed"
	MsgPasswordChangeFailed Key = "account.password_change_failed"
	MsgLoadFailed           Key = "resource.load_failed"
	MsgCreated              Key = "resource.created"
	MsgUpdated              Key = "resource.updated"
	MsgDeleted              Key = "resource.deleted"
	MsgSaveFailed           Key = "resource.save_failed"
	MsgDeleteFailed         Key = "resource.delete_failed"
	MsgMissingFields        Key = "resource.missing_fields"
	MsgReportFailed         Key = "report.failed"
	MsgUpstreamOffline      Key = "upstream.offline"
	MsgSessionFailed        Key = "session.failed"
	MsgUnknownResource      Key = "resource.unknown"
)

var translations = map[language.Tag]map[Key]string{
	language.Spanish: {
		MsgLoginFailed:          "Usuario o contraseña incorrectos",
		MsgLoggedOut:            "Sesión cerrada",
		MsgMissingToken:         "No hay una sesión activa. Inicie sesión nuevamente.",
		MsgContextSwitched:      "Contexto actualizado",
		MsgContextSwitchFailed:  "No fue posible cambiar de empresa o rol",
		MsgContextUnknown:       "La empresa o el rol seleccionado no está disponible",
		MsgVerified:             "Correo verificado correctamente",
		MsgVerifyFailed:         "No fue posible verificar el correo",
		MsgResetSent:            "Se envió un correo para restablecer la contraseña",
		MsgResetFailed:          "No fue posible enviar el correo de recuperación",
		MsgPasswordChanged:      "Contraseña actualizada",
		MsgPasswordChangeFailed: "No fue posible cambiar la contraseña",
		MsgLoadFailed:           "Error al cargar %s",
		MsgCreated:              "Registro creado en %s",
		MsgUpdated:              "Registro actualizado en %s",
		MsgDeleted:              "Registro eliminado de %s",
		MsgSaveFailed:           "No fue posible guardar en %s",
		MsgDeleteFailed:         "No fue posible eliminar de %s",
		MsgMissingFields:        "Faltan campos obligatorios: %s",
		MsgReportFailed:         "No fue posible generar el reporte",
		MsgUpstreamOffline:      "El servidor no responde. Intente más tarde.",
		MsgSessionFailed:        "No fue posible acceder a la sesión",
		MsgUnknownResource:      "Módulo desconocido: %s",
	},
	language.English: {
		MsgLoginFailed:          "Wrong user or password",
		MsgLoggedOut:            "Signed out",
		MsgMissingToken:         "There is no active session. Please sign in again.",
		MsgContextSwitched:      "Context updated",
		MsgContextSwitchFailed:  "Could not switch company or role",
		MsgContextUnknown:       "The selected company or role is not available",
		MsgVerified:             "E-mail verified",
		MsgVerifyFailed:         "Could not verify the e-mail",
		MsgResetSent:            "A password reset e-mail was sent",
		MsgResetFailed:          "Could not send the password reset e-mail",
		MsgPasswordChanged:      "Password changed",
		MsgPasswordChangeFailed: "Could not change the password",
		MsgLoadFailed:           "Failed to load %s",
		MsgCreated:              "Record created in %s",
		MsgUpdated:              "Record updated in %s",
		MsgDeleted:              "Record deleted from %s",
		MsgSaveFailed:           "Could not save to %s",
		MsgDeleteFailed:         "Could not delete from %s",
		MsgMissingFields:        "Missing required fields: %s",
		MsgReportFailed:         "Could not generate the report",
		MsgUpstreamOffline:      "The server is not responding. Try again later.",
		MsgSessionFailed:        "Could not access the session",
		MsgUnknownResource:      "Unknown module: %s",
	},
}

// Supported lists the languages with translations; the first is the default.
var Supported = []language.Tag{language.Spanish, language.English}

// Localizer formats messages in the language negotiated for a request.
type Localizer struct {
	cat     catalog.Catalog
	matcher language.Matcher
}

// NewLocalizer builds the message catalog.
func NewLocalizer() *Localizer {
	b := catalog.NewBuilder(catalog.Fallback(Supported[0]))
	for tag, msgs := range translations {
		for k, m := range msgs {
			// SetString only fails on malformed tags, which are constants here.
			_ = b.SetString(tag, string(k), m)
		}
	}
	return &Localizer{cat: b, matcher: language.NewMatcher(Supported)}
}

// Match picks a supported language from an Accept-Language header.
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Supported[0]
	}
	_, idx, conf := l.matcher.Match(tags...)
	if conf == language.No {
		return Supported[0]
	}
	return Supported[idx]
}

// Sprintf formats key in lang.
func (l *Localizer) Sprintf(lang language.Tag, key Key, args ...any) string {
	p := message.NewPrinter(lang, message.Catalog(l.cat))
	return p.Sprintf(string(key), args...)
}

// Message formats key in the language stored in ctx.
func (l *Localizer) Message(ctx context.Context, key Key, args ...any) string {
	return l.Sprintf(LanguageFrom(ctx), key, args...)
}

type langKey struct{}

// WithLanguage stores the negotiated language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, langKey{}, tag)
}

// LanguageFrom returns the language stored in ctx, or the default.
func LanguageFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(langKey{}).(language.Tag); ok {
		return tag
	}
	return Supported[0]
}
