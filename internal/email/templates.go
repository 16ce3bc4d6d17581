package email

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// VerificationMessage arma el correo con el enlace de verificacion.
func VerificationMessage(frontendURL, token string) (string, string) {
	link := buildLink(frontendURL, "/verify-email", token)
	body := fmt.Sprintf(`<p>Click <a href="%s">here</a> to verify your email.</p>`, html.EscapeString(link))
	return "Verify your email", body
}

// ResetPasswordMessage arma el correo con el enlace de reseteo.
func ResetPasswordMessage(frontendURL, token string) (string, string) {
	link := buildLink(frontendURL, "/reset-password", token)
	body := fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset your password.</p>`, html.EscapeString(link))
	return "Reset your password", body
}

func buildLink(frontendURL, path, token string) string {
	base := strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	return base + path + "?" + url.Values{"token": {token}}.Encode()
}
