package email

import (
	"bytes"
	"fmt"
	"html/template"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #0e7490;">Hi {{.Name}},</h2>
    {{range .Paragraphs}}<p>{{.}}</p>
    {{end}}{{if .Code}}<p style="background-color: #f3f4f6; padding: 10px 15px; border-radius: 4px; font-family: monospace; font-size: 20px; letter-spacing: 4px; text-align: center;">{{.Code}}</p>
    {{end}}{{if .Link}}<p style="text-align: center; margin: 30px 0;"><a href="{{.Link}}" style="background-color: #0e7490; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Sign in</a></p>
    {{end}}<p style="color: #6b7280; font-size: 14px; margin-top: 30px;">The {{.AppName}} Team</p>
</body>
</html>`))

type page struct {
	AppName    string
	Name       string
	Paragraphs []string
	Code       string
	Link       string
}

func render(p page) (string, error) {
	if p.Name == "" {
		p.Name = "there"
	}
	var buf bytes.Buffer
	if err := layout.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func plain(p page) string {
	var buf bytes.Buffer
	name := p.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&buf, "Hi %s,\n\n", name)
	for _, para := range p.Paragraphs {
		buf.WriteString(para + "\n\n")
	}
	if p.Code != "" {
		buf.WriteString(p.Code + "\n\n")
	}
	if p.Link != "" {
		buf.WriteString(p.Link + "\n\n")
	}
	fmt.Fprintf(&buf, "The %s Team", p.AppName)
	return buf.String()
}

func build(to, subject string, p page) (Message, error) {
	html, err := render(p)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       []string{to},
		Subject:  subject,
		TextBody: plain(p),
		HTMLBody: html,
	}, nil
}

// BuildResetOTPEmail carries the password-reset code.
func BuildResetOTPEmail(appName, to, name, code string, ttlMinutes int) (Message, error) {
	return build(to, fmt.Sprintf("Your %s password reset code", appName), page{
		AppName: appName,
		Name:    name,
		Paragraphs: []string{
			"We received a request to reset your password. Use the code below to continue.",
			fmt.Sprintf("The code expires in %d minutes. If you did not ask for a reset you can ignore this email.", ttlMinutes),
		},
		Code: code,
	})
}

// BuildCredentialsEmail is sent when an account is created for someone else.
func BuildCredentialsEmail(appName, to, name, password, loginURL string) (Message, error) {
	return build(to, fmt.Sprintf("Your %s account", appName), page{
		AppName: appName,
		Name:    name,
		Paragraphs: []string{
			fmt.Sprintf("An account has been created for you. Sign in with %s and the temporary password below, then change it from your profile.", to),
		},
		Code: password,
		Link: loginURL,
	})
}

func BuildCaseRejectedEmail(appName, to, name, caseRef, reason string) (Message, error) {
	paras := []string{fmt.Sprintf("Case %s was rejected by the lab.", caseRef)}
	if reason != "" {
		paras = append(paras, "Reason: "+reason)
	}
	paras = append(paras, "You can update the case and submit it as a remake.")
	return build(to, fmt.Sprintf("Case %s was rejected", caseRef), page{
		AppName:    appName,
		Name:       name,
		Paragraphs: paras,
	})
}
