package flow

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/oarkflow/tcloud-auth/pkg/models"
)

// recorderView captures every display call in order.
type recorderView struct {
	statuses []string
	errors   []string
	cleared  int
	enabled  []bool
	hidden   bool
	qr       string
	otpURL   string
	reloads  int
}

func (v *recorderView) SetStatus(msg string)     { v.statuses = append(v.statuses, msg) }
func (v *recorderView) SetError(msg string)      { v.errors = append(v.errors, msg) }
func (v *recorderView) ClearStatus()             { v.cleared++ }
func (v *recorderView) SetSubmitEnabled(on bool) { v.enabled = append(v.enabled, on) }
func (v *recorderView) HideForm()                { v.hidden = true }
func (v *recorderView) ShowQR(dataURI string)    { v.qr = dataURI }
func (v *recorderView) ShowURL(otpURL string)    { v.otpURL = otpURL }
func (v *recorderView) Reload()                  { v.reloads++ }

// fakeRegistrar returns a canned result and remembers the payload it got.
type fakeRegistrar struct {
	enrollment *models.Enrollment
	err        error
	payload    map[string]any
	calls      int
}

func (r *fakeRegistrar) Register(_ context.Context, payload map[string]any) (*models.Enrollment, error) {
	r.calls++
	r.payload = payload
	return r.enrollment, r.err
}

func submitFields() map[string]string {
	return map[string]string{
		"username":     "alice",
		"password":     "correct horse",
		"password_rep": "correct horse",
		"token":        "invite-1",
		"totp_as_qr":   "on",
	}
}

func TestSubmitSuccessWithQR(t *testing.T) {
	api := &fakeRegistrar{enrollment: &models.Enrollment{TOTPQR: "QR-BYTES"}}
	view := &recorderView{}
	ctrl := New(api, view)

	if got := ctrl.Submit(context.Background(), submitFields()); got != Success {
		t.Fatalf("state = %v, want Success", got)
	}

	if len(view.statuses) == 0 || view.statuses[0] != StatusSubmitting {
		t.Errorf("status = %v, want %q first", view.statuses, StatusSubmitting)
	}
	if !view.hidden {
		t.Error("form should be hidden after success")
	}
	if view.qr != "data:image/png;base64, QR-BYTES" {
		t.Errorf("QR data URI = %q", view.qr)
	}
	if view.otpURL != "" {
		t.Error("URL should not be shown on the QR branch")
	}
	if view.cleared == 0 {
		t.Error("status should be cleared on success")
	}
}

func TestSubmitSuccessWithURL(t *testing.T) {
	api := &fakeRegistrar{enrollment: &models.Enrollment{TOTPURL: "otpauth://totp/x"}}
	view := &recorderView{}
	ctrl := New(api, view)

	fields := submitFields()
	delete(fields, "totp_as_qr")
	if got := ctrl.Submit(context.Background(), fields); got != Success {
		t.Fatalf("state = %v, want Success", got)
	}
	if view.otpURL != "otpauth://totp/x" {
		t.Errorf("URL = %q", view.otpURL)
	}
	if view.qr != "" {
		t.Error("QR should not be shown on the URL branch")
	}
}

func TestSubmitPayloadShape(t *testing.T) {
	api := &fakeRegistrar{enrollment: &models.Enrollment{TOTPQR: "x"}}
	ctrl := New(api, nil)

	ctrl.Submit(context.Background(), submitFields())

	if _, present := api.payload["password_rep"]; present {
		t.Error("password_rep must never be transmitted")
	}
	if api.payload["totp_as_qr"] != true {
		t.Errorf("totp_as_qr = %v, want true", api.payload["totp_as_qr"])
	}
	if api.payload["username"] != "alice" || api.payload["token"] != "invite-1" {
		t.Errorf("unexpected payload: %v", api.payload)
	}
}

func TestSubmitUncheckedCheckbox(t *testing.T) {
	api := &fakeRegistrar{enrollment: &models.Enrollment{TOTPURL: "otpauth://totp/x"}}
	ctrl := New(api, nil)

	fields := submitFields()
	delete(fields, "totp_as_qr")
	ctrl.Submit(context.Background(), fields)

	if api.payload["totp_as_qr"] != false {
		t.Errorf("totp_as_qr = %v, want false", api.payload["totp_as_qr"])
	}
}

func TestSubmitPasswordMismatch(t *testing.T) {
	api := &fakeRegistrar{}
	view := &recorderView{}
	ctrl := New(api, view)

	fields := submitFields()
	fields["password_rep"] = "different horse"
	if got := ctrl.Submit(context.Background(), fields); got != Failed {
		t.Fatalf("state = %v, want Failed", got)
	}

	if api.calls != 0 {
		t.Error("no request may be sent on a password mismatch")
	}
	if len(view.errors) != 1 || view.errors[0] != MsgPasswordMismatch {
		t.Errorf("errors = %v, want [%q]", view.errors, MsgPasswordMismatch)
	}
	if len(view.enabled) != 0 {
		t.Error("submit control should stay untouched on a mismatch")
	}
	if ctrl.State() != Idle {
		t.Error("controller should rearm to Idle for a retry")
	}
}

func TestSubmitAuthError(t *testing.T) {
	api := &fakeRegistrar{err: &models.APIError{
		Tag:    models.ErrTagAuth,
		Msg:    "username already registered",
		Status: http.StatusConflict,
	}}
	view := &recorderView{}
	ctrl := New(api, view)

	if got := ctrl.Submit(context.Background(), submitFields()); got != Failed {
		t.Fatalf("state = %v, want Failed", got)
	}
	want := "Authentication Error:<br>username already registered"
	if len(view.errors) != 1 || view.errors[0] != want {
		t.Errorf("errors = %v, want [%q]", view.errors, want)
	}
}

func TestSubmitTokenError(t *testing.T) {
	api := &fakeRegistrar{err: &models.APIError{
		Tag:    models.ErrTagToken,
		Msg:    "invalid or expired registration token",
		Status: http.StatusUnauthorized,
	}}
	view := &recorderView{}
	ctrl := New(api, view)

	ctrl.Submit(context.Background(), submitFields())
	want := "Token Error:<br>invalid or expired registration token"
	if len(view.errors) != 1 || view.errors[0] != want {
		t.Errorf("errors = %v, want [%q]", view.errors, want)
	}
}

func TestSubmitUnknownErrorTag(t *testing.T) {
	api := &fakeRegistrar{err: &models.APIError{Tag: "SomethingElse", Msg: "?"}}
	view := &recorderView{}
	ctrl := New(api, view)

	ctrl.Submit(context.Background(), submitFields())
	if len(view.errors) != 1 || view.errors[0] != MsgUnknownError {
		t.Errorf("errors = %v, want [%q]", view.errors, MsgUnknownError)
	}
}

func TestSubmitTransportError(t *testing.T) {
	api := &fakeRegistrar{err: errors.New("connection refused")}
	view := &recorderView{}
	ctrl := New(api, view)

	ctrl.Submit(context.Background(), submitFields())
	if len(view.errors) != 1 || view.errors[0] != MsgScriptError {
		t.Errorf("errors = %v, want [%q]", view.errors, MsgScriptError)
	}
}

func TestSubmitDisablesAndReenables(t *testing.T) {
	api := &fakeRegistrar{err: &models.APIError{Tag: models.ErrTagAuth, Msg: "no"}}
	view := &recorderView{}
	ctrl := New(api, view)

	ctrl.Submit(context.Background(), submitFields())
	if len(view.enabled) != 2 || view.enabled[0] != false || view.enabled[1] != true {
		t.Errorf("enabled sequence = %v, want [false true]", view.enabled)
	}
}

func TestSubmitAllowsRetryAfterFailure(t *testing.T) {
	api := &fakeRegistrar{err: &models.APIError{Tag: models.ErrTagAuth, Msg: "no"}}
	ctrl := New(api, nil)

	ctrl.Submit(context.Background(), submitFields())
	api.err = nil
	api.enrollment = &models.Enrollment{TOTPQR: "x"}
	if got := ctrl.Submit(context.Background(), submitFields()); got != Success {
		t.Fatalf("retry state = %v, want Success", got)
	}
	if api.calls != 2 {
		t.Errorf("register called %d times, want 2", api.calls)
	}
}

func TestReload(t *testing.T) {
	view := &recorderView{}
	ctrl := New(&fakeRegistrar{enrollment: &models.Enrollment{TOTPQR: "x"}}, view)

	ctrl.Submit(context.Background(), submitFields())
	ctrl.Reload()

	if view.reloads != 1 {
		t.Errorf("reloads = %d, want 1", view.reloads)
	}
	if ctrl.State() != Idle {
		t.Error("reload should reset the controller to Idle")
	}
}
