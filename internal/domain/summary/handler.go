package summary

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mhr/summary/internal/platform/fhir"
)

const queryName = "findContentByPatient"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.GET("/Bundle", h.FindContentByPatient)
}

// FindContentByPatient serves the named query surface: exact patient
// identification plus a content code selecting the patient summary, with
// optional per-section lookback dates.
func (h *Handler) FindContentByPatient(c echo.Context) error {
	if c.QueryParam("_query") != queryName {
		return c.JSON(http.StatusBadRequest,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeNotSupported,
				"Only the findContentByPatient named query is supported."))
	}

	identifierSystem, identifierValue := splitToken(c.QueryParam("patient.identifier"))
	q := PatientQuery{
		IdentifierSystem: identifierSystem,
		IdentifierValue:  identifierValue,
		Birthdate:        c.QueryParam("patient.birthdate"),
		Family:           c.QueryParam("patient.family"),
		Gender:           tokenCode(c.QueryParam("patient.gender")),
	}
	if q.IdentifierValue == "" || q.Birthdate == "" || q.Family == "" || q.Gender == "" {
		return c.JSON(http.StatusBadRequest,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeRequired,
				"patient.identifier, patient.birthdate, patient.family and patient.gender are required."))
	}

	system, code := splitToken(c.QueryParam("content-code"))
	if system != loincSystem || code != patientSummaryCode {
		return c.JSON(http.StatusBadRequest,
			fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeNotSupported,
				"content-code must be http://loinc.org|60591-5."))
	}

	requests := parseSectionLookbacks(c.QueryParams()["section-lookback"])

	bundle, err := h.svc.ResolveAndBuild(c.Request().Context(), q, requests)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return c.JSON(http.StatusNotFound,
			fhir.NotFoundOutcome("No patient found with the given criteria."))
	case errors.Is(err, ErrAmbiguousPatient):
		return c.JSON(http.StatusBadRequest,
			fhir.ErrorOutcome("Multiple patients found with the given criteria."))
	case err != nil:
		return c.JSON(http.StatusInternalServerError,
			fhir.ErrorOutcome("Patient summary generation failed."))
	}
	return c.JSON(http.StatusOK, bundle.Bundle())
}

// parseSectionLookbacks decodes the repeatable composite parameter
// "system|code$date". The date part is optional; unparseable dates fall
// back to the section default.
func parseSectionLookbacks(params []string) []SectionRequest {
	var requests []SectionRequest
	for _, param := range params {
		token := param
		var datePart string
		if i := strings.IndexByte(param, '$'); i >= 0 {
			token, datePart = param[:i], param[i+1:]
		}
		system, code := splitToken(token)
		if system != loincSystem {
			continue
		}
		req := SectionRequest{Code: code}
		if datePart != "" {
			if t, ok := fhir.ParseDateTime(datePart); ok {
				req.Lookback = &t
			}
		}
		requests = append(requests, req)
	}
	return requests
}

// splitToken decodes a FHIR token parameter into system and value. A bare
// value has no system part.
func splitToken(token string) (string, string) {
	if i := strings.IndexByte(token, '|'); i >= 0 {
		return token[:i], token[i+1:]
	}
	return "", token
}

// tokenCode returns the code part of a token, tolerating a system prefix.
func tokenCode(token string) string {
	_, code := splitToken(token)
	return code
}
