// Package academy defines the records managed by the Combat Warrior Academy
// back office, the payloads its forms submit, and the public calls that need no
// session.
package academy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/combatwarrior/academy/internal/common/apperrors"
	"github.com/combatwarrior/academy/internal/common/httpclient"
	"github.com/combatwarrior/academy/internal/form"
)

var (
	ErrCertificateNotFound = apperrors.New("no certificate matches this verification code").SetStatusCode(http.StatusNotFound)
	ErrEmptyCode           = apperrors.New("verification code is required").SetStatusCode(http.StatusBadRequest)
	ErrInvalidCode         = apperrors.New("verification code may only contain letters, digits and dashes").SetStatusCode(http.StatusBadRequest)
)

// Verification is the outcome of a public certificate lookup.
type Verification struct {
	Valid       bool
	Certificate Certificate
}

// VerifyCertificate looks up a certificate by its verification code. It needs
// no session.
func VerifyCertificate(ctx context.Context, s httpclient.Sender, code string) (Verification, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Verification{}, ErrEmptyCode
	}
	if strings.ContainsAny(code, "/\\?#%. ") {
		return Verification{}, ErrInvalidCode
	}
	body, err := s.Send(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "certificates/verify/" + code,
	})
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return Verification{}, ErrCertificateNotFound
		}
		return Verification{}, err
	}

	data := gjson.GetBytes(body, "data")
	raw := data.Get("certificate")
	if !raw.Exists() {
		raw = data
	}
	var v Verification
	if err := json.Unmarshal([]byte(raw.Raw), &v.Certificate); err != nil {
		return Verification{}, httpclient.ErrRequestFailed.MsgErr("unexpected verification response", err)
	}
	v.Valid = v.Certificate.Status != "revoked"
	if valid := data.Get("valid"); valid.Exists() {
		v.Valid = valid.Bool()
	}
	return v, nil
}

// SubmitAdmission sends a public admission application after checking it.
func SubmitAdmission(ctx context.Context, s httpclient.Sender, p AdmissionPayload) (Admission, error) {
	var a Admission
	err := submitPublic(ctx, s, "admissions", "admission", p, &a)
	return a, err
}

// SubmitContact sends a public contact message after checking it.
func SubmitContact(ctx context.Context, s httpclient.Sender, p ContactPayload) (Contact, error) {
	var c Contact
	err := submitPublic(ctx, s, "contacts", "contact", p, &c)
	return c, err
}

func submitPublic(ctx context.Context, s httpclient.Sender, path, key string, payload, out any) error {
	if err := form.Validate(payload); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := s.Send(ctx, httpclient.Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return err
	}
	data := gjson.GetBytes(resp, "data")
	if item := data.Get(key); item.IsObject() {
		data = item
	}
	if data.IsObject() {
		return json.Unmarshal([]byte(data.Raw), out)
	}
	return nil
}
