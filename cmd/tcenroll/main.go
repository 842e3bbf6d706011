package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/oarkflow/tcloud-auth/pkg/client"
	"github.com/oarkflow/tcloud-auth/pkg/flow"
)

// terminalView renders registration progress on the terminal. QR codes are
// written to a PNG file since there is nothing to show them in.
type terminalView struct {
	log    *slog.Logger
	qrPath string
}

func (v *terminalView) SetStatus(msg string) { v.log.Info(msg) }

func (v *terminalView) SetError(msg string) {
	v.log.Error(strings.ReplaceAll(msg, "<br>", " "))
}

func (v *terminalView) ClearStatus()          {}
func (v *terminalView) SetSubmitEnabled(bool) {}
func (v *terminalView) HideForm()             {}
func (v *terminalView) Reload()               {}

func (v *terminalView) ShowQR(dataURI string) {
	const marker = "base64, "
	idx := strings.Index(dataURI, marker)
	if idx < 0 {
		v.log.Error("malformed QR data URI")
		return
	}
	png, err := base64.StdEncoding.DecodeString(dataURI[idx+len(marker):])
	if err != nil {
		v.log.Error("failed to decode QR code", "error", err)
		return
	}
	if err := os.WriteFile(v.qrPath, png, 0o600); err != nil {
		v.log.Error("failed to write QR code", "error", err)
		return
	}
	v.log.Info("TOTP QR code written", "path", v.qrPath)
}

func (v *terminalView) ShowURL(otpURL string) {
	fmt.Println(otpURL)
}

func main() {
	pageURL := flag.String("url", "http://localhost:8080/register", "registration page URL")
	username := flag.String("username", "", "username to register")
	password := flag.String("password", "", "password for the new account")
	token := flag.String("token", "", "registration token")
	asQR := flag.Bool("qr", true, "receive the TOTP secret as a QR code")
	qrPath := flag.String("out", "totp-qr.png", "where to write the QR code PNG")
	timeout := flag.Duration("timeout", 30*time.Second, "overall request timeout")
	flag.Parse()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.TimeOnly}))
	if *username == "" || *password == "" {
		log.Error("username and password are required")
		os.Exit(2)
	}

	api, err := client.New(*pageURL)
	if err != nil {
		log.Error("invalid page URL", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	log.Info("resolved path prefix", "prefix", api.ResolvePrefix(ctx))

	fields := map[string]string{
		"username":     *username,
		"password":     *password,
		"password_rep": *password,
		"token":        *token,
	}
	if *asQR {
		fields["totp_as_qr"] = "on"
	}

	ctrl := flow.New(api, &terminalView{log: log, qrPath: *qrPath})
	if ctrl.Submit(ctx, fields) != flow.Success {
		os.Exit(1)
	}
}
