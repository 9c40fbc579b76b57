package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"alert-service/internal/conditions"
	"alert-service/internal/logging"
	"alert-service/internal/models"
	"alert-service/internal/utils"
)

const subjectTemplate = `[Alert] {{.StreamName}} - {{.DeviceName}}`

const bodyTemplate = `An alert was triggered for {{.StreamName}}.
{{if .StreamDescription}}
{{.StreamDescription}}
{{end}}
Device: {{.DeviceName}}{{if .DeviceLocation}} ({{.DeviceLocation}}){{end}}
Triggered value: {{value .TriggeredValue}}

Conditions:
{{range .Conditions}}- {{describe .}}
{{end}}
---
This is an automated message from the checklist alert service.
`

// EmailNotifier renders alert e-mails and sends them through a Transport,
// throttled by a shared rate limiter and retried on failure.
type EmailNotifier struct {
	transport   Transport
	limiter     *rate.Limiter
	logger      *logging.Logger
	maxAttempts int
	retryDelay  time.Duration
	subject     *template.Template
	body        *template.Template
}

// NotifierOptions tunes delivery.
type NotifierOptions struct {
	RatePerSecond float64
	Burst         int
	MaxAttempts   int
	RetryDelay    time.Duration
}

// NewEmailNotifier parses the templates and builds the notifier. A
// non-positive rate disables throttling.
func NewEmailNotifier(transport Transport, opts NotifierOptions, logger *logging.Logger) (*EmailNotifier, error) {
	funcs := template.FuncMap{"value": conditions.ToText, "describe": describeCondition}

	subject, err := template.New("subject").Funcs(funcs).Parse(subjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid subject template: %w", err)
	}
	body, err := template.New("body").Funcs(funcs).Parse(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid body template: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &EmailNotifier{
		transport:   transport,
		limiter:     limiter,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		subject:     subject,
		body:        body,
	}, nil
}

// SendAlertEmail renders and delivers one alert e-mail to address.
func (n *EmailNotifier) SendAlertEmail(ctx context.Context, address string, msg models.AlertEmail) error {
	if _, err := mail.ParseAddress(address); err != nil {
		return fmt.Errorf("invalid notify address %q: %w", address, err)
	}

	subject, body, err := n.render(msg)
	if err != nil {
		return err
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	return utils.Retry(ctx, n.logger, n.maxAttempts, n.retryDelay, func() error {
		return n.transport.Send(ctx, address, subject, body)
	})
}

func (n *EmailNotifier) render(msg models.AlertEmail) (string, string, error) {
	var subject, body bytes.Buffer
	if err := n.subject.Execute(&subject, msg); err != nil {
		return "", "", fmt.Errorf("failed to format subject: %w", err)
	}
	if err := n.body.Execute(&body, msg); err != nil {
		return "", "", fmt.Errorf("failed to format body: %w", err)
	}
	return subject.String(), body.String(), nil
}

func describeCondition(c models.Condition) string {
	switch c.Type {
	case models.ConditionNumeric:
		var bounds []string
		if c.Min != nil {
			bounds = append(bounds, "min "+formatFloat(*c.Min))
		}
		if c.Max != nil {
			bounds = append(bounds, "max "+formatFloat(*c.Max))
		}
		if len(bounds) == 0 {
			return fmt.Sprintf("%s: numeric, no bounds", c.FieldID)
		}
		return fmt.Sprintf("%s: outside %s", c.FieldID, strings.Join(bounds, ", "))
	case models.ConditionText:
		if c.MatchText == nil {
			return fmt.Sprintf("%s: text, no match", c.FieldID)
		}
		return fmt.Sprintf("%s: contains %q", c.FieldID, *c.MatchText)
	case models.ConditionBoolean:
		if c.BooleanValue == nil {
			return fmt.Sprintf("%s: boolean, no expected value", c.FieldID)
		}
		return fmt.Sprintf("%s: equals %t", c.FieldID, *c.BooleanValue)
	default:
		return fmt.Sprintf("%s: %s", c.FieldID, c.Type)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
