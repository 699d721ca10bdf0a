package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/models"
)

var pngEvidence = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func buildMultipart(t *testing.T, fields map[string]string, evidence []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if evidence != nil {
		part, err := writer.CreateFormFile("evidence", "evidence.png")
		require.NoError(t, err)
		_, err = part.Write(evidence)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestReportHandlerSubmitAndFetch(t *testing.T) {
	env := setupTestApp(t)

	body, contentType := buildMultipart(t, map[string]string{
		"lat":      "19.02",
		"lng":      "72.85",
		"notes":    "large cracks in the new pillar",
		"user_ref": "citizen-7",
	}, pngEvidence)

	req := httptest.NewRequest("POST", "/api/v1/reports", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created struct {
		Success bool               `json:"success"`
		Data    dto.ReportResponse `json:"data"`
		Message string             `json:"message"`
	}
	decodeResponse(t, resp, &created)
	require.True(t, created.Success)
	require.NotEmpty(t, created.Data.ID)
	require.Equal(t, models.ReportStatusPending, created.Data.Status)
	require.Equal(t, "https://files.test/evidence.png", created.Data.EvidenceURL)

	getResp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/reports/"+created.Data.ID, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, getResp.StatusCode)

	var fetched struct {
		Data dto.ReportResponse `json:"data"`
	}
	decodeResponse(t, getResp, &fetched)
	require.Equal(t, created.Data.ID, fetched.Data.ID)
	require.Equal(t, "citizen-7", fetched.Data.UserRef)
}

func TestReportHandlerSubmitWithoutEvidence(t *testing.T) {
	env := setupTestApp(t)

	body, contentType := buildMultipart(t, map[string]string{"lat": "19.0", "lng": "72.8"}, nil)
	req := httptest.NewRequest("POST", "/api/v1/reports", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReportHandlerSubmitRejectsNonImage(t *testing.T) {
	env := setupTestApp(t)

	body, contentType := buildMultipart(t, map[string]string{"lat": "19.0", "lng": "72.8"},
		[]byte("plain text payload, not a picture"))
	req := httptest.NewRequest("POST", "/api/v1/reports", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestReportHandlerListFiltersByStatus(t *testing.T) {
	env := setupTestApp(t)

	body, contentType := buildMultipart(t, map[string]string{"lat": "19.02", "lng": "72.85"}, pngEvidence)
	req := httptest.NewRequest("POST", "/api/v1/reports", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	listResp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/reports?status=Pending", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var listing struct {
		Data struct {
			Reports []dto.ReportResponse `json:"reports"`
			Total   int64                `json:"total"`
		} `json:"data"`
	}
	decodeResponse(t, listResp, &listing)
	require.Equal(t, int64(1), listing.Data.Total)
	require.Len(t, listing.Data.Reports, 1)

	emptyResp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/reports?status=Audited", nil))
	require.NoError(t, err)
	var empty struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	decodeResponse(t, emptyResp, &empty)
	require.Zero(t, empty.Data.Total)
}

func TestReportHandlerGetUnknownReport(t *testing.T) {
	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/reports/nope", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
