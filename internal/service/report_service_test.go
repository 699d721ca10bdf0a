package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/civiclens/civiclens-api/internal/dto"
	"github.com/civiclens/civiclens-api/internal/models"
	"github.com/civiclens/civiclens-api/internal/repository"
)

// Smallest valid PNG header so mimetype detection sees an image.
var pngEvidence = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

type stubStorage struct {
	calls int
	url   string
	err   error
}

func (s *stubStorage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func newReportService(reports *stubReportRepo, storage *stubStorage) ReportService {
	return NewReportService(reports, storage, validator.New(), zerolog.Nop(), ReportConfig{MaxEvidenceBytes: 1 << 20})
}

func TestReportServiceSubmitStoresPendingReport(t *testing.T) {
	reports := newStubReportRepo()
	storage := &stubStorage{url: "https://cdn.test/evidence.png"}
	svc := newReportService(reports, storage)

	response, err := svc.Submit(context.Background(), dto.ReportSubmitRequest{
		Lat:     19.02,
		Lng:     72.85,
		Notes:   "  pothole near the junction  ",
		UserRef: "citizen-42",
	}, "evidence.png", pngEvidence)
	require.NoError(t, err)

	require.NotEmpty(t, response.ID)
	require.Equal(t, models.ReportStatusPending, response.Status)
	require.Equal(t, "https://cdn.test/evidence.png", response.EvidenceURL)
	require.Equal(t, "pothole near the junction", response.Notes)
	require.False(t, response.Anonymous)
	require.Equal(t, 1, storage.calls)

	stored, err := reports.GetByID(context.Background(), response.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusPending, stored.Status)
	expectedSum := sha256.Sum256(pngEvidence)
	require.Equal(t, fmt.Sprintf("%x", expectedSum), stored.EvidenceSHA256)
}

func TestReportServiceSubmitSanitizesNotes(t *testing.T) {
	reports := newStubReportRepo()
	svc := newReportService(reports, &stubStorage{url: "https://cdn.test/e.png"})

	response, err := svc.Submit(context.Background(), dto.ReportSubmitRequest{
		Lat:   19.0,
		Lng:   72.8,
		Notes: `<script>alert("x")</script>broken drain`,
	}, "e.png", pngEvidence)
	require.NoError(t, err)
	require.Equal(t, "broken drain", response.Notes)
	require.True(t, response.Anonymous)
}

func TestReportServiceSubmitRejectsNonImage(t *testing.T) {
	storage := &stubStorage{url: "https://cdn.test/e.png"}
	svc := newReportService(newStubReportRepo(), storage)

	_, err := svc.Submit(context.Background(), dto.ReportSubmitRequest{Lat: 19, Lng: 72},
		"notes.txt", []byte("just some text, definitely not an image"))
	require.ErrorIs(t, err, ErrEvidenceNotImage)
	require.Zero(t, storage.calls, "rejected evidence must never reach storage")
}

func TestReportServiceSubmitRejectsOversizedEvidence(t *testing.T) {
	svc := NewReportService(newStubReportRepo(), &stubStorage{}, validator.New(), zerolog.Nop(), ReportConfig{MaxEvidenceBytes: 8})

	_, err := svc.Submit(context.Background(), dto.ReportSubmitRequest{Lat: 19, Lng: 72}, "e.png", pngEvidence)
	require.ErrorIs(t, err, ErrEvidenceTooLarge)
}

func TestReportServiceSubmitRejectsBadCoordinates(t *testing.T) {
	svc := newReportService(newStubReportRepo(), &stubStorage{})

	_, err := svc.Submit(context.Background(), dto.ReportSubmitRequest{Lat: 120, Lng: 72}, "e.png", pngEvidence)
	require.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestReportServiceSubmitSurfacesUploadFailure(t *testing.T) {
	reports := newStubReportRepo()
	svc := newReportService(reports, &stubStorage{err: errors.New("cloud down")})

	_, err := svc.Submit(context.Background(), dto.ReportSubmitRequest{Lat: 19, Lng: 72}, "e.png", pngEvidence)
	require.ErrorIs(t, err, ErrEvidenceUploadFailed)
	require.Empty(t, reports.reports)
}

func TestReportServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newReportService(newStubReportRepo(), &stubStorage{})

	_, _, err := svc.List(context.Background(), repository.ReportFilter{Status: "Bogus"})
	require.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestReportServiceGetMapsNotFound(t *testing.T) {
	svc := newReportService(newStubReportRepo(), &stubStorage{})

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrReportNotFound)
}
