// Package flow drives the registration interaction: collect form fields,
// validate, send one register call, and switch the display to the TOTP
// enrollment result. The display surface is injected as a View so the
// controller can run against a browser-shaped page, a terminal, or a test
// recorder.
package flow

import (
	"context"
	"errors"

	"github.com/oarkflow/tcloud-auth/pkg/models"
)

type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

// Status and error messages shown through the view.
const (
	StatusSubmitting    = "Sending request..."
	MsgPasswordMismatch = "Passwords do not match"
	MsgUnknownError     = "Unknown error, please try again"
	MsgScriptError      = "An error occurred while executing the script"

	authErrorPrefix  = "Authentication Error:<br>"
	tokenErrorPrefix = "Token Error:<br>"
)

// View is the display surface the controller drives. Implementations must
// tolerate being called in any order; the controller guarantees the submit
// control ends up enabled after every attempt.
type View interface {
	// SetStatus shows a neutral in-progress notice.
	SetStatus(msg string)
	// SetError shows an error notice.
	SetError(msg string)
	// ClearStatus removes any notice.
	ClearStatus()
	SetSubmitEnabled(enabled bool)
	// HideForm hides the registration form after a successful attempt.
	HideForm()
	// ShowQR reveals the QR image with the given data URI as its source.
	ShowQR(dataURI string)
	// ShowURL reveals the plain otpauth URL.
	ShowURL(otpURL string)
	// Reload restarts the whole interaction, dropping all state.
	Reload()
}

// Registrar issues the register call. *client.Client satisfies this.
type Registrar interface {
	Register(ctx context.Context, payload map[string]any) (*models.Enrollment, error)
}

type Controller struct {
	api   Registrar
	view  View
	state State
}

func New(api Registrar, view View) *Controller {
	if view == nil {
		view = NopView{}
	}
	return &Controller{api: api, view: view, state: Idle}
}

func (f *Controller) State() State {
	return f.state
}

// Submit runs one registration attempt from raw form fields. Checkbox
// fields arrive as "on" or are absent, exactly as a form serializes them;
// the payload sent over the wire carries a strict boolean instead. The
// password_rep field is validated against password and never transmitted.
// Submit never panics: anything unexpected is shown as a generic script
// error through the view.
func (f *Controller) Submit(ctx context.Context, fields map[string]string) State {
	if f.state == Submitting {
		return f.state
	}
	f.view.SetStatus(StatusSubmitting)

	if fields["password"] != fields["password_rep"] {
		f.view.SetError(MsgPasswordMismatch)
		f.state = Failed
		return f.rearm()
	}

	payload := transform(fields)
	asQR := payload["totp_as_qr"].(bool)

	f.state = Submitting
	f.view.SetSubmitEnabled(false)
	defer f.view.SetSubmitEnabled(true)

	enrollment, err := f.api.Register(ctx, payload)
	if err != nil {
		f.view.SetError(errorMessage(err))
		f.state = Failed
		return f.rearm()
	}

	f.view.ClearStatus()
	f.view.HideForm()
	if asQR {
		f.view.ShowQR("data:image/png;base64, " + enrollment.TOTPQR)
	} else {
		f.view.ShowURL(enrollment.TOTPURL)
	}
	f.state = Success
	return f.state
}

// Reload restarts the interaction unconditionally, whatever the current
// state is.
func (f *Controller) Reload() {
	f.view.Reload()
	f.state = Idle
}

// rearm returns the controller to Idle so the user can retry.
func (f *Controller) rearm() State {
	s := f.state
	if s != Success {
		f.state = Idle
	}
	return s
}

// transform builds the wire payload from raw form fields: password_rep is
// dropped and totp_as_qr becomes a strict boolean; every other field passes
// through unchanged.
func transform(fields map[string]string) map[string]any {
	payload := make(map[string]any, len(fields))
	for name, value := range fields {
		if name == "password_rep" {
			continue
		}
		payload[name] = value
	}
	payload["totp_as_qr"] = checkboxChecked(fields["totp_as_qr"])
	return payload
}

// checkboxChecked maps a checkbox's serialized form value to a boolean:
// checked boxes serialize as "on", unchecked ones are absent.
func checkboxChecked(value string) bool {
	switch value {
	case "on", "true", "1":
		return true
	default:
		return false
	}
}

func errorMessage(err error) string {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		return MsgScriptError
	}
	switch apiErr.Tag {
	case models.ErrTagAuth:
		return authErrorPrefix + apiErr.Msg
	case models.ErrTagToken:
		return tokenErrorPrefix + apiErr.Msg
	default:
		return MsgUnknownError
	}
}

// NopView discards all display calls.
type NopView struct{}

func (NopView) SetStatus(string)      {}
func (NopView) SetError(string)       {}
func (NopView) ClearStatus()          {}
func (NopView) SetSubmitEnabled(bool) {}
func (NopView) HideForm()             {}
func (NopView) ShowQR(string)         {}
func (NopView) ShowURL(string)        {}
func (NopView) Reload()               {}
