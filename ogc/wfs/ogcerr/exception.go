// Package ogcerr implements the OGC exception taxonomy shared by every WFS
// operation: a typed exceptionCode + locator, renderable as an
// ows:ExceptionReport and mappable onto an HTTP status code.
package ogcerr

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Code is one of the fixed OGC exceptionCode values used throughout WFS 2.0 / OWS Common.
type Code string

const (
	OperationParsingFailed  Code = "OperationParsingFailed"
	InvalidParameterValue   Code = "InvalidParameterValue"
	MissingParameterValue   Code = "MissingParameterValue"
	OptionNotSupported      Code = "OptionNotSupported"
	OperationNotSupported   Code = "OperationNotSupported"
	VersionNegotiationFailed Code = "VersionNegotiationFailed"
	NoApplicableCode        Code = "NoApplicableCode"
	ProcessingFailed        Code = "ProcessingFailed"
)

// Exception is a WFS/OWS exception: a code, an optional locator (the XPath
// or parameter name that caused it) and a human-readable message.
type Exception struct {
	ExceptionCode Code
	Locator       string
	Message       string
	cause         error
}

func New(code Code, locator, format string, args ...any) *Exception {
	return &Exception{ExceptionCode: code, Locator: locator, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, locator string, cause error) *Exception {
	return &Exception{ExceptionCode: code, Locator: locator, Message: cause.Error(), cause: cause}
}

func (e *Exception) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("%s (locator=%s): %s", e.ExceptionCode, e.Locator, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.ExceptionCode, e.Message)
}

func (e *Exception) Unwrap() error { return e.cause }

// Cause returns the root error via github.com/pkg/errors, used when wrapping
// datastore failures so the original stack trace survives through WrapFilterDbErrors.
func (e *Exception) Cause() error {
	if e.cause == nil {
		return nil
	}
	return errors.Cause(e.cause)
}

// HTTPStatus maps an exception code onto the boundary HTTP status per spec §6/§7.
// GetFeatureById gets special treatment by its caller (404 vs 400), see httpapi's writeException.
func (e *Exception) HTTPStatus() int {
	switch e.ExceptionCode {
	case InvalidParameterValue, MissingParameterValue, OptionNotSupported,
		OperationNotSupported, OperationParsingFailed, VersionNegotiationFailed:
		return http.StatusBadRequest
	case ProcessingFailed, NoApplicableCode:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// As reports whether err (or any error it wraps) is an *Exception, writing it into target.
func As(err error, target **Exception) bool {
	return errors.As(err, target)
}

// exceptionReportXML is the ows:ExceptionReport document shape.
type exceptionReportXML struct {
	XMLName      xml.Name      `xml:"ows:ExceptionReport"`
	XMLNSOws     string        `xml:"xmlns:ows,attr"`
	Version      string        `xml:"version,attr"`
	Lang         string        `xml:"xml:lang,attr"`
	ExceptionXML []exceptionXML `xml:"ows:Exception"`
}

type exceptionXML struct {
	ExceptionCode string `xml:"exceptionCode,attr"`
	Locator       string `xml:"locator,attr,omitempty"`
	Text          string `xml:"ows:ExceptionText"`
}

// Report renders one or more exceptions as a single ows:ExceptionReport document.
func Report(excs ...*Exception) ([]byte, error) {
	report := exceptionReportXML{
		XMLNSOws: "http://www.opengis.net/ows/1.1",
		Version:  "2.0.0",
		Lang:     "en",
	}
	for _, e := range excs {
		report.ExceptionXML = append(report.ExceptionXML, exceptionXML{
			ExceptionCode: string(e.ExceptionCode),
			Locator:       e.Locator,
			Text:          e.Message,
		})
	}
	out, err := xml.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
