/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"perkle/internal/models"

	"github.com/shopspring/decimal"
)

// Message is a rendered email with plain-text and HTML alternatives.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

func money(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return "$" + d.StringFixed(0)
	}
	return "$" + d.StringFixed(2)
}

var funcs = map[string]any{"money": money}

var htmlDigest = htmltemplate.Must(htmltemplate.New("digest").Funcs(funcs).Parse(`<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #1e40af;">Perkle Weekly Digest</h1>
<p>Hi {{.Digest.Username}},</p>
<p>Here's your weekly summary of credit card benefits to use before they expire.</p>
{{- if .Digest.ExpiringBenefits}}
<h2 style="color: #ea580c; margin-top: 24px;">Benefits Expiring Soon</h2>
<table style="width: 100%; border-collapse: collapse;">
<tr style="background: #f3f4f6;"><th style="padding: 8px; text-align: left;">Card</th><th style="padding: 8px; text-align: left;">Benefit</th><th style="padding: 8px; text-align: right;">Remaining</th><th style="padding: 8px; text-align: right;">Days</th></tr>
{{- range .Digest.ExpiringBenefits}}
<tr style="border-bottom: 1px solid #e5e7eb;"><td style="padding: 8px;">{{.CardName}}</td><td style="padding: 8px;">{{.BenefitName}}</td><td style="padding: 8px; text-align: right;">{{money .Remaining}}</td><td style="padding: 8px; text-align: right; color: #ea580c;">{{.DaysRemaining}}d</td></tr>
{{- end}}
</table>
{{- else}}
<p style="color: #16a34a;">No benefits expiring in the next {{.ExpiringDays}} days!</p>
{{- end}}
{{- if .Digest.UpcomingRenewals}}
<h2 style="color: #d97706; margin-top: 24px;">Upcoming Annual Fee Renewals</h2>
{{- range .Digest.UpcomingRenewals}}
<p style="padding: 12px; background: #fffbeb; border-radius: 8px; margin: 8px 0;"><strong>{{.CardName}}</strong><br>{{money .AnnualFee}} due in {{.DaysUntilRenewal}} days{{if .CardAnniversary}} ({{.CardAnniversary}}){{end}}</p>
{{- end}}
{{- end}}
<p style="margin-top: 24px; padding-top: 16px; border-top: 1px solid #e5e7eb; color: #6b7280; font-size: 12px;">You're receiving this because you have notifications enabled in Perkle.</p>
</body>
</html>
`))

var textDigest = texttemplate.Must(texttemplate.New("digest").Funcs(funcs).Parse(`Perkle Weekly Digest

Hi {{.Digest.Username}},

Here's your weekly summary of credit card benefits to use before they expire.
{{if .Digest.ExpiringBenefits}}
Benefits Expiring Soon
{{range .Digest.ExpiringBenefits}}- {{.CardName}}: {{.BenefitName}}, {{money .Remaining}} left, {{.DaysRemaining}}d
{{end}}{{else}}
No benefits expiring in the next {{.ExpiringDays}} days!
{{end}}{{if .Digest.UpcomingRenewals}}
Upcoming Annual Fee Renewals
{{range .Digest.UpcomingRenewals}}- {{.CardName}}: {{money .AnnualFee}} due in {{.DaysUntilRenewal}} days{{if .CardAnniversary}} ({{.CardAnniversary}}){{end}}
{{end}}{{end}}
You're receiving this because you have notifications enabled in Perkle.
`))

// Subject summarises the digest counts.
func Subject(d *models.Digest) string {
	var parts []string
	if n := len(d.ExpiringBenefits); n > 0 {
		parts = append(parts, fmt.Sprintf("%d benefits expiring soon", n))
	}
	if n := len(d.UpcomingRenewals); n > 0 {
		parts = append(parts, fmt.Sprintf("%d card renewals", n))
	}
	return "Perkle: " + strings.Join(parts, " + ")
}

// Render produces the digest email for d.
func Render(d *models.Digest, expiringDays int) (Message, error) {
	data := struct {
		Digest       *models.Digest
		ExpiringDays int
	}{d, expiringDays}

	var html, text bytes.Buffer
	if err := htmlDigest.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("unable to render digest html: %w", err)
	}
	if err := textDigest.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("unable to render digest text: %w", err)
	}

	return Message{
		To:      d.Email,
		Subject: Subject(d),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
