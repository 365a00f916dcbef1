// Package qr builds the verification references encoded into receipt QR codes.
package qr

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.qr")

const receiptPath = "/common/link/etims/receipt/indexEtimsReceiptData"

// LocalVerificationLink builds the link for a locally numbered receipt:
// {verify-host}/common/link/etims/receipt/indexEtimsReceiptData?Data={PIN}{receiptNo}{DDMMYYYY}
func LocalVerificationLink(env etims.Environment, pin, receiptNo string, issued time.Time) (string, error) {
	base, err := verifyBaseURL(env.VerifyURL())
	if err != nil {
		return "", err
	}

	normalizedPin, err := normalizeAndValidatePin(pin)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(receiptNo) == "" {
		return "", errors.New("receipt number is empty")
	}

	data := normalizedPin + receiptNo + issued.Format("02012006")
	logger.Debugf("verification data: %s", data)

	return fmt.Sprintf("%s%s?Data=%s", base, receiptPath, url.QueryEscape(data)), nil
}

// Payload picks the text encoded into the QR code for a fiscalised line.
func Payload(fr *model.FiscalResult) string {
	if fr == nil {
		return ""
	}
	return strings.TrimSpace(fr.VerificationURL)
}

func verifyBaseURL(base string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("verification base URL is empty")
	}

	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", errors.Wrap(err, "invalid verification base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("verification base URL must include scheme and host, got: %q", base)
	}

	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// KRA PIN: one letter, nine digits, one letter.
var pinRe = regexp.MustCompile(`^[A-Z][0-9]{9}[A-Z]$`)

func normalizeAndValidatePin(pin string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(pin))
	if !pinRe.MatchString(p) {
		return "", errors.Errorf("invalid trader PIN %q", pin)
	}
	return p, nil
}
