// Package templates renders the transactional emails the worker sends.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

const VerifyCode = "verify_code"

var verifyCodeHTML = template.Must(template.New(VerifyCode).Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #222;">
    <h2>Hello {{.Username}},</h2>
    <p>Thanks for registering. Use the following code to verify your account:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in {{.ExpiresIn}}.</p>
    <p>If you did not request this, please ignore this email.</p>
  </body>
</html>`))

// Render returns subject, text and html bodies for a template name.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case VerifyCode:
		var buf bytes.Buffer
		if err = verifyCodeHTML.Execute(&buf, data); err != nil {
			return "", "", "", err
		}
		subject = "Your verification code"
		text = fmt.Sprintf("Your verification code is %v. It expires in %v.", data["Code"], data["ExpiresIn"])
		return subject, text, buf.String(), nil
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
}
